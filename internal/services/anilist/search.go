package anilist

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/airingbot/internal/models"
	"github.com/amaumene/airingbot/internal/utils"
)

type pageData struct {
	Page struct {
		Media []media `json:"media"`
	} `json:"Page"`
}

// Search returns up to perPage anime matching query, in AniList's order
func (c *Client) Search(ctx context.Context, query string, perPage int) ([]*models.AnimeMetadata, error) {
	if perPage <= 0 {
		perPage = 5
	}

	req := graphQLRequest{
		Query: `query ($search: String, $perPage: Int) {
			Page(page: 1, perPage: $perPage) {
				media(search: $search, type: ANIME) { ` + mediaFields + ` }
			}
		}`,
		Variables: map[string]any{"search": query, "perPage": perPage},
	}

	var out graphQLResponse[pageData]
	if err := c.do(ctx, req, &out); err != nil {
		return nil, &models.LookupError{Title: query, Err: err}
	}
	if len(out.Errors) > 0 {
		return nil, &models.LookupError{Title: query, Err: errors.New(out.Errors[0].Message)}
	}

	results := make([]*models.AnimeMetadata, 0, len(out.Data.Page.Media))
	for i := range out.Data.Page.Media {
		results = append(results, out.Data.Page.Media[i].toMetadata())
	}
	return results, nil
}

// BestMatch searches for query and returns the result whose romaji or
// english title is closest to it
func (c *Client) BestMatch(ctx context.Context, query string) (*models.AnimeMetadata, error) {
	results, err := c.Search(ctx, query, 5)
	if err != nil {
		return nil, err
	}

	candidates := make([][]string, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, []string{r.TitleRomaji, r.TitleEnglish})
	}
	idx := utils.ClosestTitle(query, candidates)
	if idx < 0 {
		return nil, &models.LookupError{Title: query, Err: ErrNoMatch}
	}

	c.logger.WithFields(logrus.Fields{
		"query": query,
		"match": results[idx].TitleRomaji,
	}).Debug("Resolved anime title")

	return results[idx], nil
}
