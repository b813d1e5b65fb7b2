package models

type Product struct {
	ID           string   `json:"id"`
	ArtisanID    string   `json:"artisan_id,omitempty"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        *float64 `json:"price"`
	Category     string   `json:"category"`
	Images       []string `json:"images"`
	Availability bool     `json:"availability"`
	ProductLink  string   `json:"product_link,omitempty"`
}
