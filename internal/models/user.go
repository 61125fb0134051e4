package models

import "time"

// DateLayout is the calendar-date format used for last completion dates
const DateLayout = "2006-01-02"

// DateOf returns the calendar date of t in t's own location
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// User represents a mission-taker's profile and streak counters
type User struct {
	ID                int64     `json:"id"`
	AuthID            string    `json:"auth_id"`
	Email             string    `json:"email,omitempty"`
	Name              string    `json:"name"`
	AvatarURL         string    `json:"avatar_url,omitempty"`
	Provider          string    `json:"provider,omitempty"`
	CurrentStreak     int       `json:"current_streak"`
	MaxStreak         int       `json:"max_streak"`
	LastCompletedDate string    `json:"last_completed_date,omitempty"` // empty when never completed
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// HasCompleted reports whether the user has ever completed a mission
func (u *User) HasCompleted() bool {
	return u.LastCompletedDate != ""
}

// Session represents a server-side authenticated session
type Session struct {
	ID          string
	AuthSubject string
	Email       string
	FullName    string
	AvatarURL   string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// AuthSession is the client's view of an authenticated identity
type AuthSession struct {
	Token     string    `json:"-"`
	AuthID    string    `json:"auth_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the session has expired
func (s *AuthSession) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// PendingProfile holds identity data between OAuth login and profile setup
type PendingProfile struct {
	AuthID    string `json:"auth_id"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
	FullName  string `json:"full_name,omitempty"`
}

// PendingProfileFrom builds the pending profile for a session with no user row
func PendingProfileFrom(s *AuthSession) *PendingProfile {
	return &PendingProfile{
		AuthID:    s.AuthID,
		Email:     s.Email,
		AvatarURL: s.AvatarURL,
		FullName:  s.FullName,
	}
}
