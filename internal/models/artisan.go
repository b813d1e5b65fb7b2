package models

type Artisan struct {
	ID              string   `json:"id"`
	UserID          string   `json:"user_id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Phone           *string  `json:"phone,omitempty"`
	Location        string   `json:"location"`
	Skills          []string `json:"skills"`
	Bio             string   `json:"bio"`
	ShopName        string   `json:"shop_name"`
	Story           string   `json:"story"`
	ProfilePhotoURL string   `json:"profile_photo_url"`
	CreatedAt       string   `json:"created_at,omitempty"`
	UpdatedAt       string   `json:"updated_at,omitempty"`
}

// ArtisanProfileUpdate is a partial update; nil fields are left untouched.
type ArtisanProfileUpdate struct {
	Name     *string   `json:"name,omitempty"`
	Phone    *string   `json:"phone,omitempty"`
	Location *string   `json:"location,omitempty"`
	Bio      *string   `json:"bio,omitempty"`
	ShopName *string   `json:"shop_name,omitempty"`
	Story    *string   `json:"story,omitempty"`
	Skills   *[]string `json:"skills,omitempty"`
}

type ArtisanQuery struct {
	Skill    string
	Location string
}
