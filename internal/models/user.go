package models

import "encoding/json"

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	UserType string `json:"user_type"` // "artisan" | "customer"
}

// UnmarshalJSON accepts both "id" and the raw Mongo "_id" the backend
// sometimes leaks from /auth/me.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var aux struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)
	if u.ID == "" {
		u.ID = aux.MongoID
	}
	return nil
}

// Session is what the browser used to keep in local storage: the bearer
// token and the serialized user record.
type Session struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
	UserType    string `json:"user_type"`
}

// StatusResponse is the generic {"status": "..."} acknowledgement.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type HealthStatus struct {
	Status string `json:"status"`
}
