package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hiddengems-web/internal/api"
	"hiddengems-web/internal/middleware"
	"hiddengems-web/internal/models"
	"hiddengems-web/internal/services"
)

type ProfileHandler struct {
	authService *services.AuthService
	queue       JobQueue
}

func NewProfileHandler(authService *services.AuthService, queue JobQueue) *ProfileHandler {
	return &ProfileHandler{authService: authService, queue: queue}
}

// Get returns the artisan profile, creating an empty one on first visit.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, artisan, ok := sessionArtisan(w, r, h.authService, true)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, artisan)
}

func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSession(r.Context())
	artisan, err := h.authService.Client(session).CreateArtisanProfileByEmail(r.Context(), session.User.Email)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, artisan)
}

// Update patches the profile from JSON or, when a new photo is attached,
// from a multipart form.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var (
		update models.ArtisanProfileUpdate
		photo  *api.File
	)

	if isMultipart(r) {
		if err := parseUpload(w, r); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", errInvalidUpload.Error(), r))
			return
		}
		var err error
		update, err = profileUpdateFromForm(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"skills": "Skills must be a JSON array or a comma-separated list"}, r))
			return
		}
		if photo, err = formFile(r, "profile_photo"); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
			return
		}
	} else if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	c, artisan, ok := sessionArtisan(w, r, h.authService, false)
	if !ok {
		return
	}

	updated, err := c.UpdateArtisanProfile(r.Context(), artisan.ID, services.PrepareProfileUpdate(update), photo)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func profileUpdateFromForm(r *http.Request) (models.ArtisanProfileUpdate, error) {
	var u models.ArtisanProfileUpdate
	field := func(name string) *string {
		vals, ok := r.MultipartForm.Value[name]
		if !ok || len(vals) == 0 {
			return nil
		}
		v := vals[0]
		return &v
	}
	u.Name = field("name")
	u.Phone = field("phone")
	u.Location = field("location")
	u.Bio = field("bio")
	u.ShopName = field("shop_name")
	u.Story = field("story")

	if raw := field("skills"); raw != nil {
		skills, err := parseSkills(*raw)
		if err != nil {
			return u, err
		}
		u.Skills = &skills
	}
	return u, nil
}

// parseSkills accepts the JSON array the profile form posts as well as a
// plain comma-separated list.
func parseSkills(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var skills []string
		if err := json.Unmarshal([]byte(raw), &skills); err != nil {
			return nil, err
		}
		return skills, nil
	}
	return services.NormalizeSkills(strings.Split(raw, ",")), nil
}

func (h *ProfileHandler) AddSkill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Skill string `json:"skill"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Skill) == "" {
		handleServiceError(w, r, &services.ValidationError{Fields: map[string]string{"skill": "Skill is required"}})
		return
	}

	h.editSkills(w, r, func(skills []string) []string {
		return services.AddSkill(skills, req.Skill)
	})
}

func (h *ProfileHandler) RemoveSkill(w http.ResponseWriter, r *http.Request) {
	skill := chi.URLParam(r, "skill")
	h.editSkills(w, r, func(skills []string) []string {
		return services.RemoveSkill(skills, skill)
	})
}

// editSkills sends the full edited list. Removing the last skill sends an
// explicit empty list, which is the only way to clear them.
func (h *ProfileHandler) editSkills(w http.ResponseWriter, r *http.Request, edit func([]string) []string) {
	c, artisan, ok := sessionArtisan(w, r, h.authService, false)
	if !ok {
		return
	}

	skills := edit(append([]string(nil), artisan.Skills...))
	if skills == nil {
		skills = []string{}
	}

	updated, err := c.UpdateArtisanProfile(r.Context(), artisan.ID, models.ArtisanProfileUpdate{Skills: &skills}, nil)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// GenerateStory queues a story job for the signed-in artisan.
func (h *ProfileHandler) GenerateStory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExtraInfo string `json:"extra_info"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
			return
		}
	}

	_, artisan, ok := sessionArtisan(w, r, h.authService, false)
	if !ok {
		return
	}

	job, err := h.queue.EnqueueStory(r.Context(), middleware.GetSessionID(r.Context()), artisan.ID, strings.TrimSpace(req.ExtraInfo))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.ID,
		"status": job.Status,
	})
}
