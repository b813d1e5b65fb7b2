package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"hiddengems-web/internal/models"
)

type contextKey string

const (
	SessionIDKey contextKey = "session_id"
	sessionKey   contextKey = "session"
)

// SessionCookieName carries the gateway session token in the browser.
const SessionCookieName = "hgoi_session"

var ErrInvalidSessionToken = errors.New("invalid session token")

// SessionLoader resolves a session id to the stored backend session.
// A missing session is (nil, nil).
type SessionLoader interface {
	Load(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
}

// SessionAuth signs short session tokens that point at a server-side
// session; the backend bearer token itself never leaves the gateway.
type SessionAuth struct {
	Secret []byte
	TTL    time.Duration
	Secure bool

	sessions SessionLoader
}

func NewSessionAuth(secret string, ttl time.Duration, sessions SessionLoader) *SessionAuth {
	return &SessionAuth{Secret: []byte(secret), TTL: ttl, sessions: sessions}
}

func (a *SessionAuth) IssueToken(sessionID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"session_id": sessionID.String(),
		"exp":        now.Add(a.TTL).Unix(),
		"iat":        now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.Secret)
}

// ParseToken verifies the signature and expiry and returns the session id.
func (a *SessionAuth) ParseToken(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.Secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidSessionToken
	}

	raw, ok := claims["session_id"].(string)
	if !ok {
		return uuid.Nil, ErrInvalidSessionToken
	}
	sessionID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidSessionToken
	}
	return sessionID, nil
}

func (a *SessionAuth) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.TTL.Seconds()),
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *SessionAuth) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware validates the session token, loads the session and attaches
// both to the request context.
func (a *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := tokenFromRequest(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Not signed in", r)
			return
		}

		sessionID, err := a.ParseToken(tokenStr)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Session has expired", r)
			} else {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid session token", r)
			}
			return
		}

		session, err := a.sessions.Load(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load session", r)
			return
		}
		if session == nil || session.AccessToken == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Session not found. Please log in again.", r)
			return
		}
		if BackendTokenExpired(session.AccessToken, time.Now()) {
			writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Backend session has expired. Please log in again.", r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sessionID, session)))
	})
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// BackendTokenExpired reports whether the backend access token is a JWT
// whose exp claim has passed. Opaque tokens are never considered expired.
func BackendTokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return now.After(exp.Time)
}

func WithSession(ctx context.Context, sessionID uuid.UUID, session *models.Session) context.Context {
	ctx = context.WithValue(ctx, SessionIDKey, sessionID)
	return context.WithValue(ctx, sessionKey, session)
}

func GetSessionID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(SessionIDKey).(uuid.UUID)
	return id
}

func GetSession(ctx context.Context) *models.Session {
	s, _ := ctx.Value(sessionKey).(*models.Session)
	return s
}

func writeError(w http.ResponseWriter, status int, code, message string, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":       code,
			"message":    message,
			"request_id": requestID,
		},
	})
}
