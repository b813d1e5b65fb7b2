package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"hiddengems-web/internal/api"
	"hiddengems-web/internal/models"
)

// ProductBoard is the dashboard's view of the signed-in artisan's products.
// It only changes after the backend confirms a change, so a failed add or
// delete leaves the list exactly as it was.
type ProductBoard struct {
	mu       sync.Mutex
	sessions map[uuid.UUID][]models.Product
}

func NewProductBoard() *ProductBoard {
	return &ProductBoard{sessions: make(map[uuid.UUID][]models.Product)}
}

func (b *ProductBoard) snapshot(sessionID uuid.UUID) []models.Product {
	out := make([]models.Product, len(b.sessions[sessionID]))
	copy(out, b.sessions[sessionID])
	return out
}

// Items returns the cached list.
func (b *ProductBoard) Items(sessionID uuid.UUID) []models.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot(sessionID)
}

// Refresh replaces the cached list with the backend's.
func (b *ProductBoard) Refresh(ctx context.Context, c *api.Client, sessionID uuid.UUID, artisanID string) ([]models.Product, error) {
	products, err := c.ListProducts(ctx, artisanID)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[sessionID] = products
	return b.snapshot(sessionID), nil
}

// Add creates the product and appends it to the cached list.
func (b *ProductBoard) Add(ctx context.Context, c *api.Client, sessionID uuid.UUID, artisanID string, in api.ProductInput) (*models.Product, []models.Product, error) {
	product, err := c.AddProduct(ctx, artisanID, in)
	if err != nil {
		return nil, nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[sessionID] = append(b.sessions[sessionID], *product)
	return product, b.snapshot(sessionID), nil
}

// Delete removes the product on the backend, then from the cached list.
func (b *ProductBoard) Delete(ctx context.Context, c *api.Client, sessionID uuid.UUID, artisanID, productID string) ([]models.Product, error) {
	if err := c.DeleteProduct(ctx, artisanID, productID); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.sessions[sessionID][:0:0]
	for _, p := range b.sessions[sessionID] {
		if p.ID != productID {
			kept = append(kept, p)
		}
	}
	b.sessions[sessionID] = kept
	return b.snapshot(sessionID), nil
}

func (b *ProductBoard) SessionIDs() []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(b.sessions))
	for id := range b.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (b *ProductBoard) Forget(sessionID uuid.UUID) {
	b.mu.Lock()
	delete(b.sessions, sessionID)
	b.mu.Unlock()
}
