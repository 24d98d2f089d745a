package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prian3003/gotchu-auth/internal/models"
	"github.com/prian3003/gotchu-auth/internal/repository"
	"github.com/prian3003/gotchu-auth/internal/store"
	log "github.com/sirupsen/logrus"
)

const (
	defaultSessionTTL   = 24 * time.Hour
	defaultUserCacheTTL = 30 * time.Minute
	defaultRateLimit    = 5
	defaultRateWindow   = 5 * time.Minute

	rateLimitScope = "auth"
)

// AuthResult is returned by every operation that establishes a session.
type AuthResult struct {
	SessionID string               `json:"session_id"`
	Token     string               `json:"token"`
	User      *models.UserSnapshot `json:"user"`
	Session   *models.Session      `json:"session"`
}

// AuthService orchestrates registration, login and the session lifecycle.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*AuthResult, error)
	Login(ctx context.Context, identifier, password string) (*AuthResult, error)
	CreateSession(ctx context.Context, user *models.User) (*AuthResult, error)
	ValidateSession(ctx context.Context, sessionID string) (*models.Session, error)
	DestroySession(ctx context.Context, sessionID string) error
	GetUserByID(ctx context.Context, userID int64) (*models.UserSnapshot, error)
	InvalidateUserCache(ctx context.Context, userID int64) error
	GenerateToken(userID int64, sessionID string) (string, error)
	VerifyToken(tokenString string) (*Claims, error)
	CheckAuthRateLimit(ctx context.Context, identifier string) (*store.RateLimitResult, error)
	ClearAuthRateLimit(ctx context.Context, identifier string) error
}

// Options tune session and throttling policy. Zero values use the defaults
// above.
type Options struct {
	SessionTTL   time.Duration
	UserCacheTTL time.Duration
	RateLimit    int64
	RateWindow   time.Duration
}

type authService struct {
	userRepo repository.UserRepository
	sessions *store.Store
	tokens   JWTService
	hasher   PasswordHasher
	opts     Options
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(userRepo repository.UserRepository, sessions *store.Store, tokens JWTService, hasher PasswordHasher, opts Options) AuthService {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.UserCacheTTL <= 0 {
		opts.UserCacheTTL = defaultUserCacheTTL
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = defaultRateWindow
	}
	return &authService{
		userRepo: userRepo,
		sessions: sessions,
		tokens:   tokens,
		hasher:   hasher,
		opts:     opts,
	}
}

func (s *authService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Plan:         models.PlanFree,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("user registered")

	// Registration implies login
	return s.CreateSession(ctx, user)
}

func (s *authService) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))

	user, err := s.userRepo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// Verify before the active check so both failure paths cost the same.
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		// Login still succeeds; the timestamp is advisory.
		log.WithField("user_id", user.ID).WithError(err).Warn("failed to update last login")
	}
	user.LastLoginAt = &now

	log.WithFields(log.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("user logged in")

	return s.CreateSession(ctx, user)
}

func (s *authService) CreateSession(ctx context.Context, user *models.User) (*AuthResult, error) {
	sessionID := uuid.NewString()

	session := &models.Session{
		UserID:     user.ID,
		Username:   user.Username,
		Email:      user.Email,
		IsVerified: user.IsVerified,
		Plan:       user.Plan,
		CreatedAt:  time.Now(),
	}
	if err := s.sessions.SetSession(ctx, sessionID, session, s.opts.SessionTTL); err != nil {
		return nil, err
	}

	snapshot := user.Snapshot()
	if err := s.sessions.CacheUser(ctx, user.ID, snapshot, s.opts.UserCacheTTL); err != nil {
		// The cache is read-through; a failed warm is not fatal.
		log.WithField("user_id", user.ID).WithError(err).Warn("failed to warm user cache")
	}

	token, err := s.tokens.Generate(user.ID, sessionID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		SessionID: sessionID,
		Token:     token,
		User:      snapshot,
		Session:   session,
	}, nil
}

// ValidateSession returns the live session record and slides its expiry.
// Absence is an expected outcome, returned as (nil, nil).
func (s *authService) ValidateSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil || session == nil {
		return nil, err
	}

	if err := s.sessions.ExtendSession(ctx, sessionID, s.opts.SessionTTL); err != nil {
		// The session resolved; a failed extension only shortens it.
		log.WithError(err).Warn("failed to extend session ttl")
	}
	return session, nil
}

func (s *authService) DestroySession(ctx context.Context, sessionID string) error {
	return s.sessions.DeleteSession(ctx, sessionID)
}

// GetUserByID is a read-through cached lookup of the safe user snapshot.
func (s *authService) GetUserByID(ctx context.Context, userID int64) (*models.UserSnapshot, error) {
	cached, err := s.sessions.GetCachedUser(ctx, userID)
	if err != nil {
		log.WithField("user_id", userID).WithError(err).Warn("user cache unavailable, falling back to repository")
	} else if cached != nil {
		return cached, nil
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	snapshot := user.Snapshot()
	if err := s.sessions.CacheUser(ctx, userID, snapshot, s.opts.UserCacheTTL); err != nil {
		log.WithField("user_id", userID).WithError(err).Warn("failed to populate user cache")
	}
	return snapshot, nil
}

func (s *authService) InvalidateUserCache(ctx context.Context, userID int64) error {
	return s.sessions.InvalidateUserCache(ctx, userID)
}

func (s *authService) GenerateToken(userID int64, sessionID string) (string, error) {
	return s.tokens.Generate(userID, sessionID)
}

func (s *authService) VerifyToken(tokenString string) (*Claims, error) {
	return s.tokens.Verify(tokenString)
}

// CheckAuthRateLimit counts an authentication attempt for the identifier.
// Returns a RateLimitError once the fixed window's budget is spent. Fails
// open when the store is down: auth must stay available during cache
// outages, and the limiter is advisory.
func (s *authService) CheckAuthRateLimit(ctx context.Context, identifier string) (*store.RateLimitResult, error) {
	key := store.RateLimitKey(rateLimitScope, strings.ToLower(strings.TrimSpace(identifier)))

	result, err := s.sessions.CheckRateLimit(ctx, key, s.opts.RateLimit, int64(s.opts.RateWindow.Seconds()))
	if err != nil {
		log.WithError(err).Warn("rate limiter unavailable, allowing request")
		return &store.RateLimitResult{
			Count:     0,
			Limit:     s.opts.RateLimit,
			Remaining: s.opts.RateLimit,
		}, nil
	}

	if result.Exceeded {
		return result, &RateLimitError{
			Limit:      result.Limit,
			Remaining:  result.Remaining,
			RetryAfter: s.opts.RateWindow,
		}
	}
	return result, nil
}

func (s *authService) ClearAuthRateLimit(ctx context.Context, identifier string) error {
	key := store.RateLimitKey(rateLimitScope, strings.ToLower(strings.TrimSpace(identifier)))
	if err := s.sessions.ClearRateLimit(ctx, key); err != nil {
		return fmt.Errorf("failed to clear auth rate limit: %w", err)
	}
	return nil
}
