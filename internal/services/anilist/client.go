package anilist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/amaumene/airingbot/internal/config"
	"github.com/amaumene/airingbot/internal/models"
)

const defaultEndpoint = "https://graphql.anilist.co"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoMatch is returned when AniList knows no anime for a title
var ErrNoMatch = errors.New("no matching anime")

// Client talks to the AniList GraphQL API
type Client struct {
	endpoint       string
	httpClient     *http.Client
	limiter        *rate.Limiter
	requestTimeout time.Duration // per round trip, queueing on the limiter excluded
	logger         *logrus.Logger
}

// NewClient creates a new AniList client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.AniListURL)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	perMinute := cfg.AniListRatePerMinute
	if perMinute <= 0 {
		return nil, fmt.Errorf("anilist rate must be positive")
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// Burst of a few requests, then the steady per-minute rate.
		limiter:        rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), min(perMinute, 5)),
		requestTimeout: cfg.LookupTimeout,
		logger:         logger,
	}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type graphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

type media struct {
	ID    int `json:"id"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
	} `json:"title"`
	CoverImage struct {
		Large string `json:"large"`
	} `json:"coverImage"`
	NextAiringEpisode *struct {
		AiringAt        int64 `json:"airingAt"`
		TimeUntilAiring int64 `json:"timeUntilAiring"`
		Episode         int   `json:"episode"`
	} `json:"nextAiringEpisode"`
}

func (m *media) toMetadata() *models.AnimeMetadata {
	meta := &models.AnimeMetadata{
		TitleRomaji:   m.Title.Romaji,
		TitleEnglish:  m.Title.English,
		CoverImageURL: m.CoverImage.Large,
	}
	if m.NextAiringEpisode != nil {
		meta.NextAiringEpisode = &models.NextAiringEpisode{
			Episode:         m.NextAiringEpisode.Episode,
			TimeUntilAiring: m.NextAiringEpisode.TimeUntilAiring,
			AiringAt:        m.NextAiringEpisode.AiringAt,
		}
	}
	return meta
}

const mediaFields = `id title { romaji english } coverImage { large } nextAiringEpisode { airingAt timeUntilAiring episode }`

type mediaData struct {
	Media *media `json:"Media"`
}

// Fetch resolves an anime title to its current metadata.
// Every failure is returned as *models.LookupError.
func (c *Client) Fetch(ctx context.Context, title string) (*models.AnimeMetadata, error) {
	req := graphQLRequest{
		Query:     `query ($search: String) { Media(search: $search, type: ANIME) { ` + mediaFields + ` } }`,
		Variables: map[string]any{"search": title},
	}

	var out graphQLResponse[mediaData]
	if err := c.do(ctx, req, &out); err != nil {
		return nil, &models.LookupError{Title: title, Err: err}
	}
	if len(out.Errors) > 0 {
		if out.Errors[0].Status == http.StatusNotFound {
			return nil, &models.LookupError{Title: title, Err: ErrNoMatch}
		}
		return nil, &models.LookupError{Title: title, Err: errors.New(out.Errors[0].Message)}
	}
	if out.Data.Media == nil {
		return nil, &models.LookupError{Title: title, Err: ErrNoMatch}
	}
	if strings.TrimSpace(out.Data.Media.Title.Romaji) == "" {
		return nil, &models.LookupError{Title: title, Err: fmt.Errorf("malformed response: missing romaji title")}
	}

	return out.Data.Media.toMetadata(), nil
}

// do performs a rate-limited GraphQL request. ctx bounds the wait for a
// limiter token; requestTimeout bounds the request itself.
func (c *Client) do(ctx context.Context, req graphQLRequest, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	c.logger.WithField("url", c.endpoint).Debug("Making AniList request")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "airingbot/1.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// AniList answers unknown titles with 404 and a GraphQL error body.
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
