// Package identity manages user accounts: registration, email confirmation,
// authentication and account lifecycle.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"sync"
	"time"

	"fileshare/internal/auth"
	"fileshare/internal/database"
	"fileshare/internal/files"
	"fileshare/internal/models"
	"fileshare/internal/notify"
	"fileshare/internal/permissions"

	"go.uber.org/zap"
)

const minPasswordLength = 6

var (
	ErrValidation         = errors.New("invalid input")
	ErrDuplicateEmail     = database.ErrDuplicateEmail
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrNotVerified        = errors.New("email address not verified")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

type Config struct {
	Secret     string
	ConfirmTTL time.Duration
	// BaseURL is prefixed to confirmation links, e.g. "https://files.example.com".
	BaseURL string
}

type Service struct {
	store    *database.Store
	files    *files.Service
	notifier notify.Notifier
	cfg      Config
	log      *zap.Logger
}

func NewService(store *database.Store, fs *files.Service, n notify.Notifier, cfg Config, log *zap.Logger) *Service {
	if cfg.ConfirmTTL <= 0 {
		cfg.ConfirmTTL = time.Hour
	}
	return &Service{store: store, files: fs, notifier: n, cfg: cfg, log: log.Named("identity")}
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// timingHash is compared against when the email is unknown so that both
// branches of Authenticate pay for a bcrypt comparison.
func timingHash() string {
	dummyHashOnce.Do(func() {
		h, err := auth.HashPassword("not-a-real-password")
		if err == nil {
			dummyHash = h
		}
	})
	return dummyHash
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return fmt.Errorf("%w: %q is not a valid email address", ErrValidation, email)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}
	return nil
}

func (s *Service) Register(ctx context.Context, email, name, rawPassword string) (*models.User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := validatePassword(rawPassword); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, database.CreateUserParams{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         permissions.RoleUser,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.Int64("user_id", user.ID))

	s.sendConfirmation(ctx, user)
	return user, nil
}

// CreateAdmin creates an already verified account with the admin role.
func (s *Service) CreateAdmin(ctx context.Context, email, name, rawPassword string) (*models.User, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(rawPassword); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	hash, err := auth.HashPassword(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return s.store.CreateUser(ctx, database.CreateUserParams{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         permissions.RoleAdmin,
		IsVerified:   true,
	})
}

func (s *Service) link(route, token string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/api/v1/auth/" + route + "/" + url.PathEscape(token)
}

func (s *Service) sendConfirmation(ctx context.Context, user *models.User) {
	token, err := auth.GenerateConfirmToken(user.Email, s.cfg.Secret, s.cfg.ConfirmTTL)
	if err != nil {
		s.log.Warn("failed to create confirmation token", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	if err := s.notifier.SendConfirmation(ctx, user.Email, s.link("confirm", token)); err != nil {
		s.log.Warn("failed to send confirmation", zap.Int64("user_id", user.ID), zap.Error(err))
	}
}

// Verify marks the account owning email as verified. Repeated calls are harmless.
func (s *Service) Verify(ctx context.Context, email string) (*models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	verified, err := s.store.MarkUserVerified(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if verified == nil {
		return nil, ErrUserNotFound
	}
	return verified, nil
}

func (s *Service) ConfirmEmail(ctx context.Context, token string) (*models.User, error) {
	email, err := auth.VerifyConfirmToken(token, s.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return s.Verify(ctx, email)
}

// ResendVerification sends a new link to unverified accounts. Unknown or
// already verified addresses succeed silently.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil || user.IsVerified {
		return nil
	}
	s.sendConfirmation(ctx, user)
	return nil
}

// RequestPasswordReset mails a reset link to active accounts. Unknown
// addresses succeed silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil || !user.IsActive {
		return nil
	}
	token, err := auth.GenerateResetToken(user.Email, s.cfg.Secret, s.cfg.ConfirmTTL)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	if err := s.notifier.SendPasswordReset(ctx, user.Email, s.link("reset-password", token)); err != nil {
		s.log.Warn("failed to send password reset", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	email, err := auth.VerifyResetToken(token, s.cfg.Secret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidToken
	}
	return s.SetPassword(ctx, user.ID, newPassword)
}

func (s *Service) Authenticate(ctx context.Context, email, rawPassword string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		auth.CheckPasswordHash(rawPassword, timingHash())
		return nil, ErrInvalidCredentials
	}
	if !auth.CheckPasswordHash(rawPassword, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if !user.IsVerified {
		return nil, ErrNotVerified
	}

	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("failed to update last login", zap.Int64("user_id", user.ID), zap.Error(err))
	} else {
		now := time.Now()
		user.LastLoginAt = &now
	}
	return user, nil
}

func (s *Service) SetPassword(ctx context.Context, userID int64, rawPassword string) error {
	if err := validatePassword(rawPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(rawPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	ok, err := s.store.UpdateUserPassword(ctx, userID, hash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPasswordHash(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	return s.SetPassword(ctx, userID, next)
}

func (s *Service) setActive(ctx context.Context, userID int64, active bool) error {
	ok, err := s.store.SetUserActive(ctx, userID, active)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) Deactivate(ctx context.Context, userID int64) error {
	return s.setActive(ctx, userID, false)
}

func (s *Service) Reactivate(ctx context.Context, userID int64) error {
	return s.setActive(ctx, userID, true)
}

func (s *Service) SetRole(ctx context.Context, userID int64, role permissions.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %w", ErrValidation, permissions.ErrUnknownRole)
	}
	ok, err := s.store.SetUserRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

// UpdateProfile changes name and email. A new email has to be confirmed again.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, name, email string) (*models.User, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = current.Name
	}
	email = NormalizeEmail(email)
	if email == "" {
		email = current.Email
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateUserProfile(ctx, userID, name, email)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}
	if updated.Email != current.Email {
		s.sendConfirmation(ctx, updated)
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.store.ListUsers(ctx, limit, offset)
}

// DeleteAccount removes the user; owned files and every related grant go
// with it. Stored bytes are removed after the commit on a best-effort basis.
func (s *Service) DeleteAccount(ctx context.Context, userID int64) error {
	var owned []models.File
	err := s.store.ExecTx(ctx, func(q *database.Queries) error {
		var err error
		owned, err = q.ListAllOwnedFiles(ctx, userID)
		if err != nil {
			return err
		}
		ok, err := q.DeleteUser(ctx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.files.RemoveOwnerData(userID, owned)
	s.log.Info("account deleted", zap.Int64("user_id", userID), zap.Int("files", len(owned)))
	return nil
}
