package user

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vanuse/clinic/internal/platform/auth"
	"github.com/vanuse/clinic/internal/platform/mail"
)

// Sentinel errors surfaced to handlers.
var (
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")
	ErrInvalidResetToken  = fmt.Errorf("invalid or expired reset token")
	ErrPasswordMismatch   = fmt.Errorf("passwords do not match")
)

// TokenIssuer signs an access token for an authenticated user.
type TokenIssuer interface {
	Issue(userID int64, role, email string) (string, error)
}

// TxRunner executes fn, carrying any opened transaction on the context so
// repository calls inside fn participate in it.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Service provides business logic for the user domain.
type Service struct {
	users     Repository
	issuer    TokenIssuer
	mailer    mail.EmailSender
	templates *mail.TemplateEngine
	logger    zerolog.Logger
	runTx     TxRunner
}

// NewService creates a new user domain service.
func NewService(users Repository, issuer TokenIssuer, mailer mail.EmailSender, templates *mail.TemplateEngine, logger zerolog.Logger) *Service {
	return &Service{
		users:     users,
		issuer:    issuer,
		mailer:    mailer,
		templates: templates,
		logger:    logger,
		runTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
	}
}

// SetTxRunner installs a transaction runner so multi-statement operations
// commit or roll back as a unit.
func (s *Service) SetTxRunner(run TxRunner) {
	s.runTx = run
}

func (s *Service) CreateUser(ctx context.Context, u *User, password string) error {
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if !ValidRole(u.Role) {
		return fmt.Errorf("invalid role %q", u.Role)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return s.users.Create(ctx, u)
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.List(ctx, limit, offset)
}

func (s *Service) UpdateUser(ctx context.Context, u *User) error {
	if u.Role != "" && !ValidRole(u.Role) {
		return fmt.Errorf("invalid role %q", u.Role)
	}
	return s.users.Update(ctx, u)
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.users.Delete(ctx, id)
}

// Authenticate verifies a password login and returns a signed access token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	return s.issuer.Issue(u.ID, u.Role, u.Email)
}

// ListDoctors returns users with the doctor role.
func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.ListByRole(ctx, RoleDoctor, limit, offset)
}

// GetDoctor returns the user only if they hold the doctor role.
func (s *Service) GetDoctor(ctx context.Context, id int64) (*User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != RoleDoctor {
		return nil, fmt.Errorf("user %d is not a doctor", id)
	}
	return u, nil
}

// ForgotPassword issues a reset token for the account and mails it to the
// user. The token expires after ResetTokenTTL.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("no account for %s", email)
	}

	token := &PasswordResetToken{
		Token:  uuid.New(),
		UserID: u.ID,
	}
	if err := s.users.CreateResetToken(ctx, token); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}

	subject, body, err := s.templates.Render("password-reset", map[string]string{
		"token":          token.Token.String(),
		"expiry_minutes": strconv.Itoa(int(ResetTokenTTL / time.Minute)),
	})
	if err != nil {
		return fmt.Errorf("render reset mail: %w", err)
	}

	if err := s.mailer.SendEmail(ctx, u.Email, subject, body); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}

	s.logger.Info().Int64("user_id", u.ID).Msg("password reset token issued")
	return nil
}

// ResetPassword validates a reset token and sets the new password. The token
// is consumed on the first validation attempt whether or not it succeeds.
// Consume and update run under the transaction runner: a failed password
// write rolls the consumption back, while an expired token commits as
// consumed.
func (s *Service) ResetPassword(ctx context.Context, token uuid.UUID, password, confirm string) error {
	if password == "" || password != confirm {
		return ErrPasswordMismatch
	}

	var userID int64
	var expired bool
	err := s.runTx(ctx, func(ctx context.Context) error {
		t, err := s.users.ConsumeResetToken(ctx, token)
		if err != nil {
			return ErrInvalidResetToken
		}
		if t.Expired(time.Now()) {
			expired = true
			return nil
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		if err := s.users.UpdatePassword(ctx, t.UserID, hash); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		userID = t.UserID
		return nil
	})
	if err != nil {
		return err
	}
	if expired {
		return ErrInvalidResetToken
	}

	s.logger.Info().Int64("user_id", userID).Msg("password reset completed")
	return nil
}
