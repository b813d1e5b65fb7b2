package services

import (
	"context"
	"net/http"
	"strings"

	"hiddengems-web/internal/api"
	"hiddengems-web/internal/models"
)

// CurrentArtisan resolves the signed-in user's artisan record. With
// createIfMissing, a 404 from the backend creates the profile first.
func CurrentArtisan(ctx context.Context, c *api.Client, user models.User, createIfMissing bool) (*models.Artisan, error) {
	if strings.TrimSpace(user.Email) == "" {
		return nil, &api.Error{Kind: api.KindPrecondition, Op: "current artisan", Detail: "No authenticated user found"}
	}

	artisan, err := c.GetArtisanByEmail(ctx, user.Email)
	if err == nil {
		return artisan, nil
	}
	if !createIfMissing || api.StatusCode(err) != http.StatusNotFound {
		return nil, err
	}
	return c.CreateArtisanProfileByEmail(ctx, user.Email)
}

// AddSkill appends a trimmed skill unless it is blank or already present.
func AddSkill(skills []string, skill string) []string {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return skills
	}
	for _, s := range skills {
		if s == skill {
			return skills
		}
	}
	return append(skills, skill)
}

func RemoveSkill(skills []string, skill string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if s != skill {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeSkills trims and de-duplicates, keeping first-seen order.
func NormalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		out = AddSkill(out, s)
	}
	return out
}

// PrepareProfileUpdate cleans the update before it goes to the backend. An
// empty skill list is sent as "not provided" rather than as a wipe.
func PrepareProfileUpdate(u models.ArtisanProfileUpdate) models.ArtisanProfileUpdate {
	if u.Skills != nil {
		skills := NormalizeSkills(*u.Skills)
		if len(skills) == 0 {
			u.Skills = nil
		} else {
			u.Skills = &skills
		}
	}
	return u
}

func WordCount(s string) int {
	return len(strings.Fields(s))
}
