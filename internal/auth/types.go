package auth

import (
	"strings"
	"time"
)

// User is the stored credential record.
type User struct {
	ID                string
	Login             string
	Name              string
	Email             string
	PasswordHash      string
	Locked            bool
	Expired           bool
	ResetTokenID      string
	ResetRequestedAt  time.Time
	ResetExpiresAt    time.Time
	UsedResetTokenID  string
	PasswordChangedAt time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Organization is the membership summary carried in sessions.
type Organization struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	TaxID string `json:"tax_id"`
}

// UserView is the sanitized user returned to clients.
type UserView struct {
	ID            string         `json:"id"`
	Login         string         `json:"login"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Organizations []Organization `json:"organizations"`
}

// Session is the result of a successful login. It is not persisted.
type Session struct {
	Token     string    `json:"token"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserView  `json:"user"`
}

// LoginRequest carries the credentials typed by the user.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// ResetTicket describes an issued password-definition token.
type ResetTicket struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Login     string    `json:"login"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ResetConfirmation completes a reset started by a token.
type ResetConfirmation struct {
	Token        string `json:"token"`
	NewPassword  string `json:"new_password"`
	Confirmation string `json:"confirmation"`
}

// PasswordChange is a self-service change by an authenticated user.
type PasswordChange struct {
	UserID          string    `json:"-"`
	ExpiresAt       time.Time `json:"-"`
	CurrentPassword string    `json:"current_password"`
	NewPassword     string    `json:"new_password"`
	Confirmation    string    `json:"confirmation"`
}

// View strips secrets from u.
func (u User) View(orgs []Organization) UserView {
	if orgs == nil {
		orgs = []Organization{}
	}
	return UserView{
		ID:            u.ID,
		Login:         u.Login,
		Name:          u.Name,
		Email:         u.Email,
		Organizations: orgs,
	}
}

// NormalizeLogin trims and lower-cases a login; lookups are case-insensitive.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
