package services

import (
	"context"
	"strings"

	"hiddengems-web/internal/api"
	"hiddengems-web/internal/models"
)

// ArtisanSearch is the Home page query: at most one of Skill and Location
// is sent to the backend (Skill wins), Query narrows the result locally.
type ArtisanSearch struct {
	Skill    string
	Location string
	Query    string
}

// SearchArtisans fetches artisans from the most specific backend endpoint
// and applies the free-text filter over the fetched list.
func SearchArtisans(ctx context.Context, c *api.Client, q ArtisanSearch) ([]models.Artisan, error) {
	var (
		artisans []models.Artisan
		err      error
	)
	switch {
	case strings.TrimSpace(q.Skill) != "":
		artisans, err = c.ArtisansBySkill(ctx, strings.TrimSpace(q.Skill))
	case strings.TrimSpace(q.Location) != "":
		artisans, err = c.ArtisansByLocation(ctx, strings.TrimSpace(q.Location))
	default:
		artisans, err = c.ListArtisans(ctx, models.ArtisanQuery{})
	}
	if err != nil {
		return nil, err
	}
	return FilterArtisans(artisans, q.Query), nil
}

// FilterArtisans keeps artisans whose name, location or any skill contains
// query, case-insensitively. An empty query keeps everything.
func FilterArtisans(artisans []models.Artisan, query string) []models.Artisan {
	needle := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Artisan, 0, len(artisans))
	for _, a := range artisans {
		if needle == "" || artisanMatches(a, needle) {
			out = append(out, a)
		}
	}
	return out
}

func artisanMatches(a models.Artisan, needle string) bool {
	if strings.Contains(strings.ToLower(a.Name), needle) ||
		strings.Contains(strings.ToLower(a.Location), needle) {
		return true
	}
	for _, s := range a.Skills {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}
