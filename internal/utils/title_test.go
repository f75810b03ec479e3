package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Naruto", want: "naruto"},
		{in: "  One   Piece ", want: "one piece"},
		{in: "ＯＮＥ ＰＩＥＣＥ", want: "one piece"},
		{in: "Shingeki no Kyojin\tFinal", want: "shingeki no kyojin final"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.in))
		})
	}
}

func TestTitleDistanceIgnoresCase(t *testing.T) {
	assert.Equal(t, 0, TitleDistance("BLEACH", "bleach"))
	assert.Equal(t, 1, TitleDistance("Naruto", "Narutp"))
}

func TestClosestTitle(t *testing.T) {
	candidates := [][]string{
		{"Naruto: Shippuuden", "Naruto Shippuden"},
		{"NARUTO", ""},
		{"Boruto: Naruto Next Generations"},
	}

	assert.Equal(t, 1, ClosestTitle("naruto", candidates))
	assert.Equal(t, 0, ClosestTitle("naruto shippuden", candidates))
	assert.Equal(t, -1, ClosestTitle("naruto", nil))
}
