package handlers

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"hiddengems-web/internal/api"
	"hiddengems-web/internal/middleware"
	"hiddengems-web/internal/models"
	"hiddengems-web/internal/services"
)

// JobQueue hands long generations to the worker pool.
type JobQueue interface {
	EnqueuePoster(ctx context.Context, sessionID uuid.UUID, image *api.File, productName string) (*models.Job, error)
	EnqueueStory(ctx context.Context, sessionID uuid.UUID, artisanID, extraInfo string) (*models.Job, error)
}

type PosterStore interface {
	Get(ctx context.Context, sessionID uuid.UUID) (*models.Poster, error)
	Discard(ctx context.Context, sessionID uuid.UUID) error
}

type DashboardHandler struct {
	authService *services.AuthService
	products    *services.ProductBoard
	assistant   *services.AssistantService
	queue       JobQueue
	posters     PosterStore
}

func NewDashboardHandler(
	authService *services.AuthService,
	products *services.ProductBoard,
	assistant *services.AssistantService,
	queue JobQueue,
	posters PosterStore,
) *DashboardHandler {
	return &DashboardHandler{
		authService: authService,
		products:    products,
		assistant:   assistant,
		queue:       queue,
		posters:     posters,
	}
}

// sessionArtisan resolves the signed-in user's artisan profile and a
// backend client carrying their token. It writes the error response itself.
func sessionArtisan(w http.ResponseWriter, r *http.Request, authService *services.AuthService, createIfMissing bool) (*api.Client, *models.Artisan, bool) {
	session := middleware.GetSession(r.Context())
	c := authService.Client(session)

	artisan, err := services.CurrentArtisan(r.Context(), c, session.User, createIfMissing)
	if err != nil {
		handleServiceError(w, r, err)
		return nil, nil, false
	}
	return c, artisan, true
}

// ──── Products ────

func (h *DashboardHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	c, artisan, ok := sessionArtisan(w, r, h.authService, false)
	if !ok {
		return
	}

	products, err := h.products.Refresh(r.Context(), c, middleware.GetSessionID(r.Context()), artisan.ID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"artisan_id": artisan.ID,
		"products":   products,
		"count":      len(products),
	})
}

type addProductRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        *float64 `json:"price"`
	Category     string   `json:"category"`
	Availability *bool    `json:"availability"`
	ProductLink  string   `json:"product_link"`
	Images       []string `json:"images"`
}

func (h *DashboardHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	in, err := readProductInput(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		handleServiceError(w, r, &services.ValidationError{Fields: map[string]string{"name": "Product name is required"}})
		return
	}

	c, artisan, ok := sessionArtisan(w, r, h.authService, false)
	if !ok {
		return
	}

	product, products, err := h.products.Add(r.Context(), c, middleware.GetSessionID(r.Context()), artisan.ID, in)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"product":  product,
		"products": products,
	})
}

// readProductInput accepts either a JSON body or the browser's multipart
// form, where "images" carries files and optionally hosted URLs.
func readProductInput(w http.ResponseWriter, r *http.Request) (api.ProductInput, error) {
	if !isMultipart(r) {
		var req addProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return api.ProductInput{}, errInvalidBody
		}
		in := api.ProductInput{
			Name:         req.Name,
			Description:  req.Description,
			Price:        req.Price,
			Category:     req.Category,
			Availability: req.Availability,
			ProductLink:  req.ProductLink,
		}
		for _, u := range req.Images {
			in.Images = append(in.Images, api.Image{URL: u})
		}
		return in, nil
	}

	if err := parseUpload(w, r); err != nil {
		return api.ProductInput{}, errInvalidUpload
	}

	in := api.ProductInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		ProductLink: r.FormValue("product_link"),
	}
	if v := r.FormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return api.ProductInput{}, errInvalidPrice
		}
		in.Price = &price
	}
	if v := r.FormValue("availability"); v != "" {
		avail, err := strconv.ParseBool(v)
		if err != nil {
			return api.ProductInput{}, errInvalidAvailability
		}
		in.Availability = &avail
	}
	for _, u := range r.MultipartForm.Value["images"] {
		if u = strings.TrimSpace(u); u != "" {
			in.Images = append(in.Images, api.Image{URL: u})
		}
	}

	files, err := formFiles(r, "images")
	if err != nil {
		return api.ProductInput{}, err
	}
	for _, f := range files {
		in.Images = append(in.Images, api.Image{File: f})
	}
	return in, nil
}

func (h *DashboardHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	c, artisan, ok := sessionArtisan(w, r, h.authService, false)
	if !ok {
		return
	}

	products, err := h.products.Delete(r.Context(), c, middleware.GetSessionID(r.Context()), artisan.ID, productID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// ──── Marketing ────

func (h *DashboardHandler) Marketing(w http.ResponseWriter, r *http.Request) {
	var (
		prompt string
		image  *api.File
	)
	if isMultipart(r) {
		if err := parseUpload(w, r); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", errInvalidUpload.Error(), r))
			return
		}
		prompt = r.FormValue("prompt")
		var err error
		if image, err = formFile(r, "image"); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
			return
		}
	} else {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
			return
		}
		prompt = req.Prompt
	}

	c, artisan, ok := sessionArtisan(w, r, h.authService, false)
	if !ok {
		return
	}

	out, err := c.MarketingOutput(r.Context(), artisan.ID, prompt, image)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) ProductDescription(w http.ResponseWriter, r *http.Request) {
	var req models.ProductDescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session := middleware.GetSession(r.Context())
	desc, err := h.authService.Client(session).GenerateProductDescription(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, desc)
}

// ──── Poster ────

// GeneratePoster queues a poster job; progress arrives over the WebSocket
// and the image is fetched from DownloadPoster once it completes.
func (h *DashboardHandler) GeneratePoster(w http.ResponseWriter, r *http.Request) {
	if err := parseUpload(w, r); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", errInvalidUpload.Error(), r))
		return
	}

	image, err := formFile(r, "image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
		return
	}

	job, err := h.queue.EnqueuePoster(r.Context(), middleware.GetSessionID(r.Context()), image, r.FormValue("product_name"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.ID,
		"status": job.Status,
	})
}

func (h *DashboardHandler) DownloadPoster(w http.ResponseWriter, r *http.Request) {
	poster, err := h.posters.Get(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if poster == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No poster has been generated", r))
		return
	}

	w.Header().Set("Content-Type", poster.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": poster.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(poster.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(poster.Data)
}

func (h *DashboardHandler) DiscardPoster(w http.ResponseWriter, r *http.Request) {
	if err := h.posters.Discard(r.Context(), middleware.GetSessionID(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ──── Events ────

func (h *DashboardHandler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := services.SearchEvents(r.Context(), h.authService.Public(), services.EventSearch{})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	total := len(events)
	if len(events) > services.DashboardEventPreview {
		events = events[:services.DashboardEventPreview]
	}
	writeJSON(w, http.StatusOK, models.EventList{Results: events, Count: total})
}

// ──── Assistant ────

func (h *DashboardHandler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": h.assistant.History(middleware.GetSessionID(r.Context())),
	})
}

func (h *DashboardHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	sessionID := middleware.GetSessionID(r.Context())
	session := middleware.GetSession(r.Context())

	reply, err := h.assistant.Ask(r.Context(), h.authService.Client(session), sessionID, req.Message)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reply":    reply,
		"messages": h.assistant.History(sessionID),
	})
}

func (h *DashboardHandler) ResetChat(w http.ResponseWriter, r *http.Request) {
	h.assistant.Reset(middleware.GetSessionID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
