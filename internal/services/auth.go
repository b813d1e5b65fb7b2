package services

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"hiddengems-web/internal/api"
	"hiddengems-web/internal/models"
)

type SessionStore interface {
	Save(ctx context.Context, sessionID uuid.UUID, s *models.Session, ttl time.Duration) error
	Load(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	Clear(ctx context.Context, sessionID uuid.UUID) error
}

type SessionTokenIssuer interface {
	IssueToken(sessionID uuid.UUID) (string, error)
}

// PosterDiscarder releases a session's generated poster.
type PosterDiscarder interface {
	Discard(ctx context.Context, sessionID uuid.UUID) error
}

// LoginResult is a freshly established gateway session.
type LoginResult struct {
	SessionID    uuid.UUID
	SessionToken string
	Session      *models.Session
}

type AuthService struct {
	client   *api.Client
	sessions SessionStore
	tokens   SessionTokenIssuer
	chats    *ChatStore
	products *ProductBoard
	posters  PosterDiscarder
	ttl      time.Duration
}

func NewAuthService(client *api.Client, sessions SessionStore, tokens SessionTokenIssuer, chats *ChatStore, products *ProductBoard, posters PosterDiscarder, ttl time.Duration) *AuthService {
	return &AuthService{
		client:   client,
		sessions: sessions,
		tokens:   tokens,
		chats:    chats,
		products: products,
		posters:  posters,
		ttl:      ttl,
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Signup registers the user with the backend and then signs them in with
// the same credentials.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*LoginResult, error) {
	fieldErrors := make(map[string]string)
	if strings.TrimSpace(req.Username) == "" {
		fieldErrors["username"] = "Username is required"
	}
	if !emailRegex.MatchString(req.Email) {
		fieldErrors["email"] = "Invalid email format"
	}
	if req.Password == "" {
		fieldErrors["password"] = "Password is required"
	}
	if req.UserType != "" && req.UserType != "artisan" && req.UserType != "customer" {
		fieldErrors["user_type"] = "User type must be artisan or customer"
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	if _, err := s.client.WithToken("").Signup(ctx, req); err != nil {
		return nil, err
	}

	return s.Login(ctx, models.LoginRequest{Email: req.Email, Password: req.Password})
}

// Login runs the backend login, fetches the current user with the new
// token and persists both under a new session id.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*LoginResult, error) {
	fieldErrors := make(map[string]string)
	if strings.TrimSpace(req.Email) == "" {
		fieldErrors["email"] = "Email is required"
	}
	if req.Password == "" {
		fieldErrors["password"] = "Password is required"
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	c := s.client.WithToken("")
	tok, err := c.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, &api.Error{Kind: api.KindValidation, Op: "login", Detail: "Login response did not include an access token"}
	}

	user, err := c.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	session := &models.Session{AccessToken: c.Token(), User: *user}
	sessionID := uuid.New()
	if err := s.sessions.Save(ctx, sessionID, session, s.ttl); err != nil {
		return nil, err
	}

	token, err := s.tokens.IssueToken(sessionID)
	if err != nil {
		s.sessions.Clear(ctx, sessionID)
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	return &LoginResult{SessionID: sessionID, SessionToken: token, Session: session}, nil
}

// Logout tells the backend, then drops everything the gateway holds for
// the session regardless of the backend's answer. Only local failures are
// returned.
func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID, session *models.Session) error {
	if session != nil && session.AccessToken != "" {
		if _, err := s.client.WithToken(session.AccessToken).Logout(ctx); err != nil {
			log.Printf("logout: backend logout for session %s failed: %v", sessionID, err)
		}
	}

	if err := s.sessions.Clear(ctx, sessionID); err != nil {
		return err
	}
	if s.chats != nil {
		s.chats.Clear(sessionID)
	}
	if s.products != nil {
		s.products.Forget(sessionID)
	}
	if s.posters != nil {
		if err := s.posters.Discard(ctx, sessionID); err != nil {
			log.Printf("logout: failed to discard poster for session %s: %v", sessionID, err)
		}
	}
	return nil
}

// Client returns a backend client carrying the session's bearer token.
func (s *AuthService) Client(session *models.Session) *api.Client {
	if session == nil {
		return s.client.WithToken("")
	}
	return s.client.WithToken(session.AccessToken)
}

// Public returns an unauthenticated backend client.
func (s *AuthService) Public() *api.Client {
	return s.client.WithToken("")
}
