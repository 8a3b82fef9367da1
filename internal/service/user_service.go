package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/maputo/user-service/internal/auth"
	"github.com/maputo/user-service/internal/config"
	"github.com/maputo/user-service/internal/domain"
	"github.com/maputo/user-service/internal/events"
	"github.com/maputo/user-service/internal/repository"
)

var (
	ErrBadCredentials  = errors.New("bad credentials")
	ErrAccountLocked   = errors.New("account locked")
	ErrAccountDisabled = errors.New("account disabled")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailNotFound   = errors.New("email not found")
	ErrUsernameExists  = errors.New("username already exists")
	ErrEmailExists     = errors.New("email already exists")
	ErrInvalidRole     = errors.New("invalid role")
)

const (
	passwordLength = 10
	userIDLength   = 10

	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	digits       = "0123456789"
)

// ImageStore persists profile pictures and names the fallback avatar.
type ImageStore interface {
	SaveProfileImage(ctx context.Context, username string, image io.Reader) (string, error)
	TemporaryImageURL(username string) string
}

// UserInput carries the admin-editable fields of an account.
type UserInput struct {
	FirstName    string
	LastName     string
	Username     string
	Email        string
	Role         string
	Active       bool
	NotBlocked   bool
	ProfileImage io.Reader
}

// UserDependencies encapsulates collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Attempts   auth.AttemptTracker
	Tokens     *auth.TokenManager
	Images     ImageStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// UserService coordinates login, registration and account management.
type UserService struct {
	users      repository.UserRepository
	attempts   auth.AttemptTracker
	tokens     *auth.TokenManager
	images     ImageStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// NewUserService builds the service.
func NewUserService(cfg config.AuthConfig, deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      deps.UserRepo,
		attempts:   deps.Attempts,
		tokens:     deps.Tokens,
		images:     deps.Images,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
		now:        time.Now,
	}
}

// LoadUserByUsername fetches the account for an authentication attempt. It
// refreshes the blocked flag from the attempt tracker and rolls the last
// login dates forward, then saves the record.
func (s *UserService) LoadUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if err != nil {
		return nil, err
	}

	if err := s.validateLoginAttempt(ctx, user); err != nil {
		return nil, err
	}

	now := s.now()
	user.LastLoginDateDisplay = user.LastLoginDate
	user.LastLoginDate = &now
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// A blocked account is left blocked and its counter is dropped, so an
// administrator unblocking it starts from zero.
func (s *UserService) validateLoginAttempt(ctx context.Context, user *domain.User) error {
	if !user.NotBlocked {
		return s.attempts.Evict(ctx, user.Username)
	}
	exceeded, err := s.attempts.HasExceededMaxAttempts(ctx, user.Username)
	if err != nil {
		return fmt.Errorf("check login attempts: %w", err)
	}
	user.NotBlocked = !exceeded
	return nil
}

// Login authenticates the credentials and returns a signed token.
func (s *UserService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	user, err := s.LoadUserByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return nil, "", ErrBadCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if !user.NotBlocked {
		return nil, "", ErrAccountLocked
	}
	if !user.Active {
		return nil, "", ErrAccountDisabled
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if recErr := s.attempts.RecordFailure(ctx, username); recErr != nil {
			s.logger.Warn("record login failure", zap.String("username", username), zap.Error(recErr))
		}
		return nil, "", ErrBadCredentials
	}

	if err := s.attempts.Evict(ctx, username); err != nil {
		s.logger.Warn("evict login attempts", zap.String("username", username), zap.Error(err))
	}

	token, err := s.tokens.Issue(auth.Principal{Username: user.Username, Authorities: user.Authorities})
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Register creates a self-service account with ROLE_USER and a generated password.
func (s *UserService) Register(ctx context.Context, firstName, lastName, username, email string) (*domain.User, error) {
	if _, err := s.validateNewUsernameAndEmail(ctx, "", username, email); err != nil {
		return nil, err
	}

	password, err := generatePassword()
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:       firstName,
		LastName:        lastName,
		Username:        username,
		Email:           email,
		PasswordHash:    hash,
		JoinDate:        s.now(),
		Role:            domain.RoleUser,
		Authorities:     domain.RoleUser.Authorities(),
		ProfileImageURL: s.images.TemporaryImageURL(username),
		Active:          true,
		NotBlocked:      true,
	}
	if user.UserID, err = generateUserID(); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("username", username), zap.String("user_id", user.UserID))
	s.publish(ctx, events.EventUserRegistered, user.Username, events.CredentialsPayload{
		FirstName: firstName,
		Email:     email,
		Password:  password,
	})
	return user, nil
}

// AddNewUser creates an account on behalf of an administrator.
func (s *UserService) AddNewUser(ctx context.Context, in UserInput) (*domain.User, error) {
	if _, err := s.validateNewUsernameAndEmail(ctx, "", in.Username, in.Email); err != nil {
		return nil, err
	}
	role, err := parseRole(in.Role)
	if err != nil {
		return nil, err
	}

	password, err := generatePassword()
	if err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Username:        in.Username,
		Email:           in.Email,
		PasswordHash:    hash,
		JoinDate:        s.now(),
		Role:            role,
		Authorities:     role.Authorities(),
		ProfileImageURL: s.images.TemporaryImageURL(in.Username),
		Active:          in.Active,
		NotBlocked:      in.NotBlocked,
	}
	if user.UserID, err = generateUserID(); err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	if in.ProfileImage != nil {
		if user, err = s.UpdateProfileImage(ctx, user.Username, in.ProfileImage); err != nil {
			return nil, err
		}
	}

	s.publish(ctx, events.EventUserAdded, user.Username, events.CredentialsPayload{
		FirstName: in.FirstName,
		Email:     in.Email,
		Password:  password,
	})
	return user, nil
}

// UpdateUser rewrites the account currently named currentUsername.
func (s *UserService) UpdateUser(ctx context.Context, currentUsername string, in UserInput) (*domain.User, error) {
	user, err := s.validateNewUsernameAndEmail(ctx, currentUsername, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	role, err := parseRole(in.Role)
	if err != nil {
		return nil, err
	}

	user.FirstName = in.FirstName
	user.LastName = in.LastName
	user.Username = in.Username
	user.Email = in.Email
	user.Role = role
	user.Authorities = role.Authorities()
	user.Active = in.Active
	user.NotBlocked = in.NotBlocked
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	if in.ProfileImage != nil {
		return s.UpdateProfileImage(ctx, user.Username, in.ProfileImage)
	}
	return user, nil
}

// DeleteUser removes an account by store id.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: id %d", ErrUserNotFound, id)
		}
		return err
	}
	s.publish(ctx, events.EventUserDeleted, "", events.UserDeletedPayload{ID: id})
	return nil
}

// ListUsers returns every account.
func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.FindAll(ctx)
}

// FindUserByUsername looks an account up by username.
func (s *UserService) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return user, err
}

// FindUserByEmail looks an account up by email.
func (s *UserService) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrEmailNotFound, email)
	}
	return user, err
}

// ResetPassword replaces the password of the account owning email and
// hands the new one to the notifier.
func (s *UserService) ResetPassword(ctx context.Context, email string) error {
	user, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	password, err := generatePassword()
	if err != nil {
		return err
	}
	if user.PasswordHash, err = auth.HashPassword(password, s.bcryptCost); err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}

	s.publish(ctx, events.EventPasswordReset, user.Username, events.CredentialsPayload{
		FirstName: user.FirstName,
		Email:     user.Email,
		Password:  password,
	})
	return nil
}

// UpdateProfileImage stores image as the user's picture and records its URL.
func (s *UserService) UpdateProfileImage(ctx context.Context, username string, image io.Reader) (*domain.User, error) {
	user, err := s.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	url, err := s.images.SaveProfileImage(ctx, username, image)
	if err != nil {
		return nil, fmt.Errorf("save profile image: %w", err)
	}
	user.ProfileImageURL = url
	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// validateNewUsernameAndEmail enforces uniqueness. With a currentUsername
// the taken name or email may belong to that user, who is returned.
func (s *UserService) validateNewUsernameAndEmail(ctx context.Context, currentUsername, newUsername, newEmail string) (*domain.User, error) {
	byUsername, err := s.lookup(s.users.FindByUsername(ctx, newUsername))
	if err != nil {
		return nil, err
	}
	byEmail, err := s.lookup(s.users.FindByEmail(ctx, newEmail))
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(currentUsername) == "" {
		if byUsername != nil {
			return nil, ErrUsernameExists
		}
		if byEmail != nil {
			return nil, ErrEmailExists
		}
		return nil, nil
	}

	current, err := s.FindUserByUsername(ctx, currentUsername)
	if err != nil {
		return nil, err
	}
	if byUsername != nil && byUsername.ID != current.ID {
		return nil, ErrUsernameExists
	}
	if byEmail != nil && byEmail.ID != current.ID {
		return nil, ErrEmailExists
	}
	return current, nil
}

func (s *UserService) lookup(user *domain.User, err error) (*domain.User, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

func (s *UserService) publish(ctx context.Context, eventType events.EventType, username string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	var actor events.Actor
	if sc, ok := auth.FromContext(ctx); ok {
		actor.Username = sc.Username
	}
	if err := s.dispatcher.Publish(ctx, events.NewEvent(eventType, username, actor, payload)); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

func parseRole(name string) (domain.Role, error) {
	if strings.TrimSpace(name) == "" {
		return domain.RoleUser, nil
	}
	role, err := domain.ParseRole(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidRole, name)
	}
	return role, nil
}

func generatePassword() (string, error) {
	return randomString(alphanumeric, passwordLength)
}

func generateUserID() (string, error) {
	return randomString(digits, userIDLength)
}

func randomString(alphabet string, n int) (string, error) {
	limit := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate random string: %w", err)
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf), nil
}
