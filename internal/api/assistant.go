package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"hiddengems-web/internal/models"
)

const DefaultTopK = 3

func (c *Client) AssistantChat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	const op = "assistant chat"
	if strings.TrimSpace(req.Query) == "" {
		return nil, precondition(op, "query is required")
	}
	if req.TopK <= 0 {
		req.TopK = DefaultTopK
	}

	var out models.ChatResponse
	err := c.doJSON(ctx, request{
		op:      op,
		method:  http.MethodPost,
		path:    "/api/v1/assistant/chat",
		payload: JSONPayload{Body: req},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateStory turns an artisan's bio into a customer-facing story.
// extraInfo is optional free text appended to the artisan's details.
func (c *Client) GenerateStory(ctx context.Context, artisanID, extraInfo string) (*models.Story, error) {
	const op = "generate story"
	if strings.TrimSpace(artisanID) == "" {
		return nil, precondition(op, "artisan_id is required")
	}

	params := url.Values{"artisan_id": {artisanID}}
	if extraInfo != "" {
		params.Set("extra_info", extraInfo)
	}

	var out models.Story
	err := c.doJSON(ctx, request{
		op:     op,
		method: http.MethodGet,
		path:   "/api/v1/generate-story",
		query:  params,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
