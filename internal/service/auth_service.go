package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dailymission/internal/database"
	"dailymission/internal/models"
	"dailymission/internal/repository"
	"dailymission/internal/security"
	"dailymission/internal/validation"

	lru "github.com/hashicorp/golang-lru"
)

// Identity is the account data returned by an OAuth provider
type Identity struct {
	Provider  string
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

// IssuedSession is the result of a successful login
type IssuedSession struct {
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expires_at"`
	NeedsProfile bool      `json:"needs_profile"`
}

// AuthService handles sessions and profile creation
type AuthService struct {
	db              *database.DB
	userRepo        *repository.UserRepository
	tokens          *security.TokenIssuer
	cache           *lru.Cache
	sessionDuration time.Duration
	categoryGoal    int
	email           *EmailService
	logger          *slog.Logger
}

// NewAuthService creates a new auth service. Validated sessions are cached
// in an LRU of cacheSize entries.
func NewAuthService(db *database.DB, tokens *security.TokenIssuer, sessionDuration time.Duration, cacheSize, categoryGoal int, email *EmailService, logger *slog.Logger) (*AuthService, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		db:              db,
		userRepo:        repository.NewUserRepository(db),
		tokens:          tokens,
		cache:           cache,
		sessionDuration: sessionDuration,
		categoryGoal:    categoryGoal,
		email:           email,
		logger:          logger,
	}, nil
}

// CreateSession stores a session for an authenticated identity and signs
// its bearer token
func (s *AuthService) CreateSession(ctx context.Context, identity Identity) (*IssuedSession, error) {
	if identity.Subject == "" {
		return nil, errors.New("identity subject is required")
	}
	if validation.ValidateEmail(identity.Email) != nil {
		identity.Email = ""
	}

	now := time.Now()
	session := &models.Session{
		ID:          security.GenerateSessionID(),
		AuthSubject: identity.Provider + ":" + identity.Subject,
		Email:       identity.Email,
		FullName:    strings.TrimSpace(identity.Name),
		AvatarURL:   identity.AvatarURL,
		ExpiresAt:   now.Add(s.sessionDuration),
		CreatedAt:   now,
	}
	if err := s.userRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	token, err := s.tokens.Sign(session.ID, session.AuthSubject, session.Email, now, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetUserByAuthID(ctx, session.AuthSubject)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session created",
		slog.String("auth_id", session.AuthSubject),
		slog.Bool("needs_profile", user == nil),
	)
	return &IssuedSession{Token: token, ExpiresAt: session.ExpiresAt, NeedsProfile: user == nil}, nil
}

// ValidateSession resolves a bearer token to its live session
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrSessionNotFound
	}

	if cached, ok := s.cache.Get(claims.ID); ok {
		session := cached.(*models.Session)
		if !session.IsExpired() {
			return session, nil
		}
		s.cache.Remove(claims.ID)
	}

	session, err := s.userRepo.GetSession(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil || session.AuthSubject != claims.Subject {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		_ = s.userRepo.DeleteSession(ctx, session.ID)
		return nil, ErrSessionExpired
	}

	s.cache.Add(session.ID, session)
	return session, nil
}

// Logout revokes the session behind token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	s.cache.Remove(claims.ID)
	return s.userRepo.DeleteSession(ctx, claims.ID)
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.userRepo.DeleteExpiredSessions(ctx, time.Now())
}

// GetProfile returns the profile for an identity, or nil when it has none yet
func (s *AuthService) GetProfile(ctx context.Context, authID string) (*models.User, error) {
	return s.userRepo.GetUserByAuthID(ctx, authID)
}

// CreateProfile creates the user row and the zeroed category scores for a
// session that has no profile yet
func (s *AuthService) CreateProfile(ctx context.Context, session *models.Session, name string) (*models.User, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	provider, _, _ := strings.Cut(session.AuthSubject, ":")

	var user *models.User
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		users := repository.NewUserRepository(tx)
		existing, err := users.GetUserByAuthID(ctx, session.AuthSubject)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrProfileExists
		}

		user, err = users.CreateUser(ctx, session.AuthSubject, session.Email, name, session.AvatarURL, provider)
		if err != nil {
			return err
		}
		return repository.NewScoreRepository(tx).InitializeScores(ctx, user.ID, s.categoryGoal)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Profile created", slog.Int64("user_id", user.ID), slog.String("auth_id", user.AuthID))

	if s.email != nil && user.Email != "" {
		if err := s.email.SendWelcomeEmail(ctx, user.Email, user.Name); err != nil {
			s.logger.Warn("Failed to send welcome email", slog.Int64("user_id", user.ID), slog.Any("error", err))
		}
	}
	return user, nil
}
