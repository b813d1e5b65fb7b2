package models

// MarketingOutput is returned verbatim from the marketing endpoint; its keys
// depend on the model the backend is running.
type MarketingOutput map[string]any

type ProductDescriptionRequest struct {
	Keywords        []string `json:"keywords"`
	ProductName     string   `json:"product_name,omitempty"`
	CraftType       string   `json:"craft_type,omitempty"`
	ArtisanLocation string   `json:"artisan_location,omitempty"`
	TargetLength    string   `json:"target_length"` // "short" | "medium" | "long"
	Tone            string   `json:"tone"`          // "professional" | "casual" | "artistic" | "traditional"
}

type ProductDescription struct {
	Description      string   `json:"description"`
	Title            string   `json:"title"`
	ShortDescription string   `json:"short_description"`
	Highlights       []string `json:"highlights"`
	GeneratedAt      string   `json:"generated_at"`
	KeywordsUsed     []string `json:"keywords_used"`
}

type Story struct {
	Status          string `json:"status"`
	Story           string `json:"story"`
	ArtisanID       string `json:"artisan_id"`
	OriginalContext string `json:"original_context,omitempty"`
	GeneratedAt     string `json:"generated_at,omitempty"`
}

// Poster is a generated marketing image.
type Poster struct {
	Data        []byte `json:"-"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
}

// StoryResult is what a finished story job reports back to the browser.
type StoryResult struct {
	Story
	WordCount int `json:"word_count"`
}

// PosterResult describes a stored poster; the bytes are fetched separately.
type PosterResult struct {
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
	Size        int    `json:"size"`
}
