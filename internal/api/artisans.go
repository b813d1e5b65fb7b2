package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"hiddengems-web/internal/models"
)

func (c *Client) ListArtisans(ctx context.Context, q models.ArtisanQuery) ([]models.Artisan, error) {
	params := url.Values{}
	if q.Skill != "" {
		params.Set("skill", q.Skill)
	}
	if q.Location != "" {
		params.Set("location", q.Location)
	}

	var out []models.Artisan
	err := c.doJSON(ctx, request{
		op:     "list artisans",
		method: http.MethodGet,
		path:   "/api/v1/artisans/",
		query:  params,
	}, &out)
	return out, err
}

func (c *Client) ArtisansBySkill(ctx context.Context, skill string) ([]models.Artisan, error) {
	var out []models.Artisan
	err := c.doJSON(ctx, request{
		op:     "artisans by skill",
		method: http.MethodGet,
		path:   "/api/v1/artisans/skill/" + escape(skill),
	}, &out)
	return out, err
}

func (c *Client) ArtisansByLocation(ctx context.Context, location string) ([]models.Artisan, error) {
	var out []models.Artisan
	err := c.doJSON(ctx, request{
		op:     "artisans by location",
		method: http.MethodGet,
		path:   "/api/v1/artisans/location/" + escape(location),
	}, &out)
	return out, err
}

func (c *Client) GetArtisan(ctx context.Context, artisanID string) (*models.Artisan, error) {
	if strings.TrimSpace(artisanID) == "" {
		return nil, precondition("get artisan", "artisan id is required")
	}
	var out models.Artisan
	err := c.doJSON(ctx, request{
		op:     "get artisan",
		method: http.MethodGet,
		path:   "/api/v1/artisans/" + escape(artisanID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetArtisanByEmail(ctx context.Context, email string) (*models.Artisan, error) {
	if strings.TrimSpace(email) == "" {
		return nil, precondition("get artisan by email", "email is required")
	}
	var out models.Artisan
	err := c.doJSON(ctx, request{
		op:     "get artisan by email",
		method: http.MethodGet,
		path:   "/api/v1/artisans/by-email/" + escape(email),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentUserArtisan resolves the logged-in user and then their artisan
// record. A user without an email fails before the second request.
func (c *Client) CurrentUserArtisan(ctx context.Context) (*models.Artisan, error) {
	user, err := c.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Email == "" {
		return nil, precondition("current user artisan", "No authenticated user found")
	}
	return c.GetArtisanByEmail(ctx, user.Email)
}

func (c *Client) CreateArtisanProfile(ctx context.Context, userID string) (*models.Artisan, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, precondition("create artisan profile", "user id is required")
	}
	var out models.Artisan
	err := c.doJSON(ctx, request{
		op:     "create artisan profile",
		method: http.MethodPost,
		path:   "/api/v1/artisans/create",
		query:  url.Values{"user_id": {userID}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateArtisanProfileByEmail(ctx context.Context, email string) (*models.Artisan, error) {
	if strings.TrimSpace(email) == "" {
		return nil, precondition("create artisan profile by email", "email is required")
	}
	var out models.Artisan
	err := c.doJSON(ctx, request{
		op:     "create artisan profile by email",
		method: http.MethodPost,
		path:   "/api/v1/artisans/create-by-email",
		query:  url.Values{"email": {email}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateArtisanProfile patches the profile. With a photo the update goes out
// as multipart, list fields JSON-encoded into a single part.
func (c *Client) UpdateArtisanProfile(ctx context.Context, artisanID string, update models.ArtisanProfileUpdate, photo *File) (*models.Artisan, error) {
	if strings.TrimSpace(artisanID) == "" {
		return nil, precondition("update artisan profile", "artisan id is required")
	}

	fields, err := profileFields(update)
	if err != nil {
		return nil, &Error{Kind: KindPrecondition, Op: "update artisan profile", Err: err}
	}

	var out models.Artisan
	err = c.doJSON(ctx, request{
		op:      "update artisan profile",
		method:  http.MethodPatch,
		path:    "/api/v1/artisans/" + escape(artisanID) + "/profile",
		payload: Classify(update, fields, []FilePart{{Field: "profile_photo", File: photo}}),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func profileFields(u models.ArtisanProfileUpdate) ([]Field, error) {
	var fields []Field
	add := func(name string, v *string) {
		if v != nil {
			fields = append(fields, Field{Name: name, Value: *v})
		}
	}
	add("name", u.Name)
	add("phone", u.Phone)
	add("location", u.Location)
	add("bio", u.Bio)
	add("shop_name", u.ShopName)
	add("story", u.Story)

	if u.Skills != nil {
		skills := *u.Skills
		if skills == nil {
			skills = []string{}
		}
		buf, err := json.Marshal(skills)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Name: "skills", Value: string(buf)})
	}
	return fields, nil
}
