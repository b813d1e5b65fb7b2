package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"hiddengems-web/internal/api"
	"hiddengems-web/internal/models"
)

// ─── Event filtering ───

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, ok := ParseEventDate(s)
	if !ok {
		t.Fatalf("bad date %q", s)
	}
	return d
}

func TestFilterEvents_FromBound(t *testing.T) {
	events := []models.Event{
		{Title: "Winter Mela", StartDate: "2024-01-01"},
		{Title: "Summer Haat", StartDate: "2024-06-01"},
	}

	got := FilterEvents(events, EventFilter{From: mustDate(t, "2024-03-01")})
	if len(got) != 1 || got[0].Title != "Summer Haat" {
		t.Fatalf("expected only the June event, got %+v", got)
	}
}

func TestFilterEvents(t *testing.T) {
	events := []models.Event{
		{ID: "1", Venue: "Jaipur Haat", StartDate: "2024-02-01", EndDate: "2024-02-05"},
		{ID: "2", Venue: "Dilli Haat", StartDate: "2024-02-10"},
		{ID: "3", Venue: "Kolkata", StartDate: "sometime"},
		{ID: "4", Venue: "Surajkund", StartDate: "2024-01-28", EndDate: "2024-02-12"},
	}

	tests := []struct {
		name   string
		filter EventFilter
		want   []string
	}{
		{"no bounds keeps all", EventFilter{}, []string{"1", "2", "3", "4"}},
		{"from drops unparsable", EventFilter{From: mustDate(t, "2024-02-01")}, []string{"1", "2"}},
		{"to uses end date", EventFilter{To: mustDate(t, "2024-02-05")}, []string{"1"}},
		{"to falls back to start", EventFilter{To: mustDate(t, "2024-02-10")}, []string{"1", "2"}},
		{"inclusive range", EventFilter{From: mustDate(t, "2024-02-01"), To: mustDate(t, "2024-02-10")}, []string{"1", "2"}},
		{"venue substring", EventFilter{Venue: "haat"}, []string{"1", "2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterEvents(events, tt.filter)
			ids := make([]string, 0, len(got))
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, ids)
			}
		})
	}
}

func TestParseEventDate_Formats(t *testing.T) {
	want := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-03-09", "2024-03-09T10:30:00Z", "2024-03-09 10:30:00", "2024-03-09T10:30:00.123456", "2024-03-09T10:30:00.5+05:30", "09-03-2024", "09/03/2024"} {
		got, ok := ParseEventDate(s)
		if !ok || !got.Equal(want) {
			t.Fatalf("%q: expected %v, got %v (ok=%v)", s, want, got, ok)
		}
	}
	if _, ok := ParseEventDate(""); ok {
		t.Fatalf("empty string should not parse")
	}
}

// ─── Carousel ───

func TestCarousel_FullRotationReturnsToStart(t *testing.T) {
	c := NewCarousel(5, 3, 0)
	start := c.Visible()
	for i := 0; i < 5; i++ {
		c = c.Next()
	}
	if !reflect.DeepEqual(c.Visible(), start) {
		t.Fatalf("expected %v after 5 steps, got %v", start, c.Visible())
	}
}

func TestCarousel_AdvanceIsModular(t *testing.T) {
	for length := 1; length <= 7; length++ {
		for start := 0; start < length; start++ {
			for n := 0; n <= 2*length+1; n++ {
				c := NewCarousel(length, 3, start)
				stepped := c
				for i := 0; i < n; i++ {
					stepped = stepped.Next()
				}
				if want := (start + n) % length; stepped.Index != want {
					t.Fatalf("len=%d start=%d n=%d: expected %d, got %d", length, start, n, want, stepped.Index)
				}
				if c.Advance(n).Index != stepped.Index {
					t.Fatalf("Advance(%d) disagrees with %d×Next", n, n)
				}
			}
		}
	}
}

func TestCarousel_PrevWrapsAndWindow(t *testing.T) {
	c := NewCarousel(5, 3, 0).Prev()
	if c.Index != 4 {
		t.Fatalf("expected prev from 0 to wrap to 4, got %d", c.Index)
	}
	if got := c.Visible(); !reflect.DeepEqual(got, []int{4, 0, 1}) {
		t.Fatalf("unexpected window %v", got)
	}

	short := NewCarousel(2, 3, 1)
	if got := short.Visible(); !reflect.DeepEqual(got, []int{1, 0}) {
		t.Fatalf("short list should show each item once, got %v", got)
	}

	empty := NewCarousel(0, 3, 7).Next()
	if empty.Index != 0 || len(empty.Visible()) != 0 {
		t.Fatalf("empty carousel should stay at 0 with nothing visible")
	}

	items := []string{"a", "b", "c", "d", "e"}
	if got := VisibleItems(NewCarousel(5, 3, -1), items); !reflect.DeepEqual(got, []string{"e", "a", "b"}) {
		t.Fatalf("unexpected items %v", got)
	}
}

// ─── Artisan filtering ───

func TestFilterArtisans(t *testing.T) {
	artisans := []models.Artisan{
		{ID: "1", Name: "Asha Devi", Location: "Jaipur", Skills: []string{"Blue Pottery"}},
		{ID: "2", Name: "Ravi", Location: "Varanasi", Skills: []string{"Silk weaving"}},
		{ID: "3", Name: "Meera", Location: "Kutch", Skills: []string{"Embroidery"}},
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"1", "2", "3"}},
		{"pottery", []string{"1"}},
		{"VARANASI", []string{"2"}},
		{"ee", []string{"3"}},
		{"glass", []string{}},
	}

	for _, tt := range tests {
		got := FilterArtisans(artisans, tt.query)
		ids := make([]string, 0, len(got))
		for _, a := range got {
			ids = append(ids, a.ID)
		}
		if !reflect.DeepEqual(ids, tt.want) {
			t.Fatalf("query %q: expected %v, got %v", tt.query, tt.want, ids)
		}
	}
}

func TestSearchArtisans_PrefersSkillEndpoint(t *testing.T) {
	var paths []string
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		json.NewEncoder(w).Encode([]models.Artisan{{ID: "1", Name: "Asha"}, {ID: "2", Name: "Ravi"}})
	}))
	defer srv.Close()

	c := api.New(srv.URL)
	got, err := SearchArtisans(context.Background(), c, ArtisanSearch{Skill: "pottery", Location: "Jaipur", Query: "ash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("expected free-text filter to keep only Asha, got %+v", got)
	}

	if _, err := SearchArtisans(context.Background(), c, ArtisanSearch{Location: "Jaipur"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := SearchArtisans(context.Background(), c, ArtisanSearch{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"/api/v1/artisans/skill/pottery", "/api/v1/artisans/location/Jaipur", "/api/v1/artisans/"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
}

// ─── Skills / profile helpers ───

func TestSkillHelpers(t *testing.T) {
	skills := AddSkill([]string{"pottery"}, "  weaving ")
	skills = AddSkill(skills, "pottery")
	skills = AddSkill(skills, "   ")
	if !reflect.DeepEqual(skills, []string{"pottery", "weaving"}) {
		t.Fatalf("unexpected skills %v", skills)
	}

	if got := RemoveSkill(skills, "pottery"); !reflect.DeepEqual(got, []string{"weaving"}) {
		t.Fatalf("unexpected skills after remove %v", got)
	}

	empty := []string{" ", ""}
	u := PrepareProfileUpdate(models.ArtisanProfileUpdate{Skills: &empty})
	if u.Skills != nil {
		t.Fatalf("empty skill list should be sent as not provided")
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount("  Born in   Jaipur,\nAsha learnt pottery "); got != 6 {
		t.Fatalf("expected 6 words, got %d", got)
	}
	if WordCount("") != 0 {
		t.Fatalf("expected 0 words for empty story")
	}
}

// ─── Chat ───

func TestAssistantService_Ask(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail":"index offline"}`))
			return
		}
		json.NewEncoder(w).Encode(models.ChatResponse{Answer: "Asha makes blue pottery."})
	}))
	defer srv.Close()

	chats := NewChatStore()
	svc := NewAssistantService(chats, 3)
	sid := uuid.New()
	c := api.New(srv.URL)

	reply, err := svc.Ask(context.Background(), c, sid, "who makes pottery?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Content != "Asha makes blue pottery." {
		t.Fatalf("unexpected reply %q", reply.Content)
	}

	fail.Store(true)
	reply, err = svc.Ask(context.Background(), c, sid, "and weaving?")
	if err == nil {
		t.Fatalf("expected backend error to be returned")
	}
	if reply.Content != assistantFallback {
		t.Fatalf("expected fallback reply, got %q", reply.Content)
	}

	history := svc.History(sid)
	if len(history) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(history))
	}
	roles := []string{history[0].Role, history[1].Role, history[2].Role, history[3].Role}
	if !reflect.DeepEqual(roles, []string{"user", "assistant", "user", "assistant"}) {
		t.Fatalf("unexpected roles %v", roles)
	}

	if len(svc.History(uuid.New())) != 0 {
		t.Fatalf("transcripts must be per session")
	}

	if _, err := svc.Ask(context.Background(), c, sid, "   "); err == nil {
		t.Fatalf("expected blank question to be rejected")
	}
	if len(svc.History(sid)) != 4 {
		t.Fatalf("rejected question must not be recorded")
	}
}

// ─── Product board ───

func TestProductBoard_FailedAddKeepsList(t *testing.T) {
	var failAdd atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]models.Product{{ID: "p1", Name: "Vase"}})
		case http.MethodPost:
			if failAdd.Load() {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"detail":"bad price"}`))
				return
			}
			json.NewEncoder(w).Encode(models.Product{ID: "p2", Name: "Shawl"})
		case http.MethodDelete:
			w.Write([]byte(`{"status":"deleted"}`))
		}
	}))
	defer srv.Close()

	board := NewProductBoard()
	c := api.New(srv.URL)
	sid := uuid.New()
	ctx := context.Background()

	if _, err := board.Refresh(ctx, c, sid, "a1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	_, items, err := board.Add(ctx, c, sid, "a1", api.ProductInput{Name: "Shawl"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 products after add, got %d", len(items))
	}

	failAdd.Store(true)
	before := board.Items(sid)
	if _, _, err := board.Add(ctx, c, sid, "a1", api.ProductInput{Name: "Lamp"}); err == nil {
		t.Fatalf("expected add to fail")
	}
	if !reflect.DeepEqual(board.Items(sid), before) {
		t.Fatalf("failed add must not change the list")
	}

	items, err = board.Delete(ctx, c, sid, "a1", "p1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(items) != 1 || items[0].ID != "p2" {
		t.Fatalf("unexpected list after delete %+v", items)
	}
}

// ─── Auth / sessions ───

type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.Session
	saveErr  error
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[uuid.UUID]*models.Session)}
}

func (m *memorySessionStore) Save(ctx context.Context, id uuid.UUID, s *models.Session, ttl time.Duration) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = s
	return nil
}

func (m *memorySessionStore) Load(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id], nil
}

func (m *memorySessionStore) Clear(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

type stubIssuer struct{}

func (stubIssuer) IssueToken(id uuid.UUID) (string, error) { return "session-" + id.String(), nil }

type stubPosters struct{ discarded []uuid.UUID }

func (s *stubPosters) Discard(ctx context.Context, id uuid.UUID) error {
	s.discarded = append(s.discarded, id)
	return nil
}

func newAuthBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/signup":
			w.Write([]byte(`{"status":"created"}`))
		case "/api/v1/auth/login":
			w.Write([]byte(`{"access_token":"abc","token_type":"bearer","user_id":"u1","user_type":"artisan"}`))
		case "/api/v1/auth/me":
			if r.Header.Get("Authorization") != "Bearer abc" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"detail":"Not authenticated"}`))
				return
			}
			w.Write([]byte(`{"id":"u1","email":"asha@example.com","username":"asha","user_type":"artisan"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Not Found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthService_LoginAndLogout(t *testing.T) {
	srv := newAuthBackend(t)
	store := newMemorySessionStore()
	chats := NewChatStore()
	products := NewProductBoard()
	posters := &stubPosters{}
	base := api.New(srv.URL)
	svc := NewAuthService(base, store, stubIssuer{}, chats, products, posters, time.Hour)
	ctx := context.Background()

	res, err := svc.Login(ctx, models.LoginRequest{Email: "asha@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Session.AccessToken != "abc" || res.Session.User.Email != "asha@example.com" {
		t.Fatalf("unexpected session %+v", res.Session)
	}
	if res.SessionToken != "session-"+res.SessionID.String() {
		t.Fatalf("unexpected session token %q", res.SessionToken)
	}
	if base.Token() != "" {
		t.Fatalf("login must not leak the token onto the shared client")
	}

	stored, _ := store.Load(ctx, res.SessionID)
	if stored == nil {
		t.Fatalf("session not persisted")
	}

	chats.Append(res.SessionID, models.ChatMessage{Role: "user", Content: "hi"})

	// The backend has no logout route; local state must still be dropped.
	if err := svc.Logout(ctx, res.SessionID, stored); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s, _ := store.Load(ctx, res.SessionID); s != nil {
		t.Fatalf("session should be cleared")
	}
	if len(chats.History(res.SessionID)) != 0 {
		t.Fatalf("transcript should be dropped on logout")
	}
	if len(posters.discarded) != 1 || posters.discarded[0] != res.SessionID {
		t.Fatalf("poster should be released on logout")
	}
}

func TestAuthService_SignupValidation(t *testing.T) {
	svc := NewAuthService(api.New("http://127.0.0.1:1"), newMemorySessionStore(), stubIssuer{}, nil, nil, nil, time.Hour)

	_, err := svc.Signup(context.Background(), models.SignupRequest{Email: "nope", UserType: "admin"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"username", "email", "password", "user_type"} {
		if verr.Fields[field] == "" {
			t.Fatalf("expected %s to be flagged", field)
		}
	}
}

func TestAuthService_SignupLogsIn(t *testing.T) {
	srv := newAuthBackend(t)
	store := newMemorySessionStore()
	svc := NewAuthService(api.New(srv.URL), store, stubIssuer{}, NewChatStore(), NewProductBoard(), nil, time.Hour)

	res, err := svc.Signup(context.Background(), models.SignupRequest{Username: "asha", Email: "asha@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if s, _ := store.Load(context.Background(), res.SessionID); s == nil || s.User.ID != "u1" {
		t.Fatalf("expected signup to establish a session")
	}
}

func TestAuthService_FailedSaveIsReported(t *testing.T) {
	srv := newAuthBackend(t)
	store := newMemorySessionStore()
	store.saveErr = errors.New("redis down")
	svc := NewAuthService(api.New(srv.URL), store, stubIssuer{}, nil, nil, nil, time.Hour)

	if _, err := svc.Login(context.Background(), models.LoginRequest{Email: "asha@example.com", Password: "pw"}); err == nil {
		t.Fatalf("expected save failure to fail the login")
	}
}

func TestCurrentArtisan(t *testing.T) {
	var created atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/artisans/by-email/asha@example.com":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Artisan not found"}`))
		case "/api/v1/artisans/create-by-email":
			created.Store(true)
			w.Write([]byte(`{"id":"a1","email":"asha@example.com"}`))
		}
	}))
	defer srv.Close()

	c := api.New(srv.URL)
	user := models.User{ID: "u1", Email: "asha@example.com"}

	if _, err := CurrentArtisan(context.Background(), c, user, false); api.StatusCode(err) != http.StatusNotFound {
		t.Fatalf("expected 404 without createIfMissing, got %v", err)
	}
	if created.Load() {
		t.Fatalf("profile must not be created without createIfMissing")
	}

	a, err := CurrentArtisan(context.Background(), c, user, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created.Load() || a.ID != "a1" {
		t.Fatalf("expected profile to be created, got %+v", a)
	}

	if _, err := CurrentArtisan(context.Background(), c, models.User{}, true); !api.IsKind(err, api.KindPrecondition) {
		t.Fatalf("expected precondition error for user without email, got %v", err)
	}
}

// ─── Janitor ───

func TestSessionJanitor_Sweep(t *testing.T) {
	store := newMemorySessionStore()
	chats := NewChatStore()
	products := NewProductBoard()

	live, gone := uuid.New(), uuid.New()
	store.Save(context.Background(), live, &models.Session{AccessToken: "abc"}, time.Hour)
	chats.Append(live, models.ChatMessage{Role: "user", Content: "hi"})
	chats.Append(gone, models.ChatMessage{Role: "user", Content: "bye"})

	j := NewSessionJanitor(store, chats, products)
	if n := j.Sweep(context.Background()); n != 1 {
		t.Fatalf("expected 1 session released, got %d", n)
	}
	if len(chats.History(live)) != 1 || len(chats.History(gone)) != 0 {
		t.Fatalf("janitor released the wrong session")
	}
}
