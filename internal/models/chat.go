package models

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role      string              `json:"role"` // "user" or "assistant"
	Content   string              `json:"content"`
	Retrieved []RetrievedDocument `json:"retrieved,omitempty"`
}

// ChatRequest is the payload sent to the assistant endpoint.
type ChatRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type RetrievedDocument struct {
	ID    string  `json:"_id"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// ChatResponse is the RAG answer plus the chunks it was grounded on.
type ChatResponse struct {
	Query     string              `json:"query"`
	Retrieved []RetrievedDocument `json:"retrieved"`
	Answer    string              `json:"answer"`
}
