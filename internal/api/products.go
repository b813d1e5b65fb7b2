package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"hiddengems-web/internal/models"
)

// Image is either an already-hosted URL or a file to upload.
type Image struct {
	URL  string
	File *File
}

type ProductInput struct {
	Name         string
	Description  string
	Price        *float64
	Category     string
	Availability *bool
	ProductLink  string
	Images       []Image
}

type productBody struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Category     string   `json:"category,omitempty"`
	Images       []string `json:"images"`
	Availability *bool    `json:"availability,omitempty"`
	ProductLink  string   `json:"product_link,omitempty"`
}

// payload renders the product for the wire: multipart with one "images"
// part per image when any image is a file, JSON otherwise.
func (p ProductInput) payload() Payload {
	body := productBody{
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Category:     p.Category,
		Images:       []string{},
		Availability: p.Availability,
		ProductLink:  p.ProductLink,
	}

	var fields []Field
	var files []FilePart
	for _, img := range p.Images {
		if img.File != nil {
			files = append(files, FilePart{Field: "images", File: img.File})
			continue
		}
		if img.URL != "" {
			body.Images = append(body.Images, img.URL)
			fields = append(fields, Field{Name: "images", Value: img.URL})
		}
	}

	fields = append(fields, Field{Name: "name", Value: p.Name})
	if p.Description != "" {
		fields = append(fields, Field{Name: "description", Value: p.Description})
	}
	if p.Price != nil {
		fields = append(fields, Field{Name: "price", Value: strconv.FormatFloat(*p.Price, 'f', -1, 64)})
	}
	if p.Category != "" {
		fields = append(fields, Field{Name: "category", Value: p.Category})
	}
	if p.Availability != nil {
		fields = append(fields, Field{Name: "availability", Value: strconv.FormatBool(*p.Availability)})
	}
	if p.ProductLink != "" {
		fields = append(fields, Field{Name: "product_link", Value: p.ProductLink})
	}

	return Classify(body, fields, files)
}

func (c *Client) ListProducts(ctx context.Context, artisanID string) ([]models.Product, error) {
	if strings.TrimSpace(artisanID) == "" {
		return nil, precondition("list products", "artisan id is required")
	}
	var out []models.Product
	err := c.doJSON(ctx, request{
		op:     "list products",
		method: http.MethodGet,
		path:   "/api/v1/artisans/" + escape(artisanID) + "/products",
	}, &out)
	return out, err
}

func (c *Client) ListProductsByEmail(ctx context.Context, email string) ([]models.Product, error) {
	if strings.TrimSpace(email) == "" {
		return nil, precondition("list products by email", "email is required")
	}
	var out []models.Product
	err := c.doJSON(ctx, request{
		op:     "list products by email",
		method: http.MethodGet,
		path:   "/api/v1/artisans/by-email/" + escape(email) + "/products",
	}, &out)
	return out, err
}

func (c *Client) AddProduct(ctx context.Context, artisanID string, p ProductInput) (*models.Product, error) {
	if strings.TrimSpace(artisanID) == "" {
		return nil, precondition("add product", "artisan id is required")
	}
	return c.addProduct(ctx, "add product", "/api/v1/artisans/"+escape(artisanID)+"/products", p)
}

func (c *Client) AddProductByEmail(ctx context.Context, email string, p ProductInput) (*models.Product, error) {
	if strings.TrimSpace(email) == "" {
		return nil, precondition("add product by email", "email is required")
	}
	return c.addProduct(ctx, "add product by email", "/api/v1/artisans/by-email/"+escape(email)+"/products", p)
}

func (c *Client) addProduct(ctx context.Context, op, path string, p ProductInput) (*models.Product, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, precondition(op, "product name is required")
	}
	var out models.Product
	err := c.doJSON(ctx, request{
		op:      op,
		method:  http.MethodPost,
		path:    path,
		payload: p.payload(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, artisanID, productID string) error {
	if strings.TrimSpace(artisanID) == "" || strings.TrimSpace(productID) == "" {
		return precondition("delete product", "artisan id and product id are required")
	}
	return c.doJSON(ctx, request{
		op:     "delete product",
		method: http.MethodDelete,
		path:   "/api/v1/artisans/" + escape(artisanID) + "/products/" + escape(productID),
	}, nil)
}
