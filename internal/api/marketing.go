package api

import (
	"context"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hiddengems-web/internal/models"
)

// PosterTimeout bounds poster generation when the caller set no deadline.
const PosterTimeout = 30 * time.Second

// MarketingOutput asks the backend for marketing copy. The prompt travels
// as a query parameter; an optional image switches the body to multipart.
func (c *Client) MarketingOutput(ctx context.Context, artisanID, prompt string, image *File) (models.MarketingOutput, error) {
	const op = "marketing output"
	if strings.TrimSpace(prompt) == "" {
		return nil, precondition(op, "Prompt is required for marketing content generation")
	}
	if strings.TrimSpace(artisanID) == "" {
		return nil, precondition(op, "artisan id is required")
	}

	var out models.MarketingOutput
	err := c.doJSON(ctx, request{
		op:      op,
		method:  http.MethodPost,
		path:    "/api/v1/artisans/" + escape(artisanID) + "/marketing",
		query:   url.Values{"prompt": {prompt}},
		payload: Classify(struct{}{}, nil, []FilePart{{Field: "image", File: image}}),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GenerateProductDescription(ctx context.Context, req models.ProductDescriptionRequest) (*models.ProductDescription, error) {
	const op = "generate product description"

	keywords := make([]string, 0, len(req.Keywords))
	for _, k := range req.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		return nil, precondition(op, "at least one keyword is required")
	}
	req.Keywords = keywords
	if req.TargetLength == "" {
		req.TargetLength = "medium"
	}
	if req.Tone == "" {
		req.Tone = "professional"
	}

	var out models.ProductDescription
	err := c.doJSON(ctx, request{
		op:      op,
		method:  http.MethodPost,
		path:    "/api/v1/product-description/generate",
		payload: JSONPayload{Body: req},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GeneratePoster uploads a product picture and returns the rendered poster.
// An empty or non-image body is a validation failure, not a success.
func (c *Client) GeneratePoster(ctx context.Context, image *File, productName string) (*models.Poster, error) {
	const op = "generate poster"
	if image == nil || len(image.Data) == 0 {
		return nil, precondition(op, "image is required for poster generation")
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, PosterTimeout)
		defer cancel()
	}

	var fields []Field
	if name := strings.TrimSpace(productName); name != "" {
		fields = append(fields, Field{Name: "product_name", Value: name})
	}

	resp, err := c.send(ctx, request{
		op:      op,
		method:  http.MethodPost,
		path:    "/api/v1/poster/generate",
		payload: &MultipartPayload{Fields: fields, Files: []FilePart{{Field: "image", File: image}}},
		accept:  "image/*",
	})
	if err != nil {
		return nil, err
	}

	if len(resp.body) == 0 {
		return nil, invalidResponse(op, "Received empty poster response")
	}

	mediaType, _, _ := mime.ParseMediaType(resp.header.Get("Content-Type"))
	if mediaType == "" || mediaType == "application/octet-stream" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(resp.body))
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, invalidResponse(op, "Invalid response: expected image, got "+mediaType)
	}

	return &models.Poster{
		Data:        resp.body,
		ContentType: mediaType,
		Filename:    attachmentName(resp.header.Get("Content-Disposition"), "poster.jpg"),
	}, nil
}

func attachmentName(disposition, fallback string) string {
	if disposition == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil || params["filename"] == "" {
		return fallback
	}
	return params["filename"]
}
