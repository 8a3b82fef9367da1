package handlers

import (
	"errors"
	"net/http"

	"github.com/maputo/user-service/internal/repository"
	"github.com/maputo/user-service/internal/service"
	"github.com/maputo/user-service/internal/storage"
	apperrors "github.com/maputo/user-service/pkg/util/errorutil"
)

const (
	IncorrectCredentialsMessage = "Username / password incorrect. Please try again"
	AccountLockedMessage        = "Your account has been locked. Please contact administration"
	AccountDisabledMessage      = "Your account has been disabled. If this is an error, please contact administration"
	UsernameExistsMessage       = "Username already exists"
	EmailExistsMessage          = "Email already exists"
)

// mapServiceError turns service and storage sentinels into DomainErrors.
// Anything unknown is returned untouched and ends up as a 500.
func mapServiceError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrBadCredentials):
		return apperrors.NewDomainError("BAD_CREDENTIALS", IncorrectCredentialsMessage, http.StatusBadRequest, nil)
	case errors.Is(err, service.ErrAccountLocked):
		return apperrors.NewLocked(AccountLockedMessage)
	case errors.Is(err, service.ErrAccountDisabled):
		return apperrors.NewDomainError("ACCOUNT_DISABLED", AccountDisabledMessage, http.StatusBadRequest, nil)
	case errors.Is(err, service.ErrUserNotFound):
		return apperrors.NewNotFound("user", nil)
	case errors.Is(err, service.ErrEmailNotFound):
		return apperrors.NewNotFound("email", nil)
	case errors.Is(err, service.ErrUsernameExists):
		return apperrors.NewConflict(UsernameExistsMessage, nil)
	case errors.Is(err, service.ErrEmailExists):
		return apperrors.NewConflict(EmailExistsMessage, nil)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict("User already exists", nil)
	case errors.Is(err, service.ErrInvalidRole):
		return apperrors.NewValidationError(err.Error(), nil)
	case errors.Is(err, storage.ErrImageNotFound):
		return apperrors.NewNotFound("image", nil)
	case errors.Is(err, storage.ErrInvalidImagePath):
		return apperrors.NewValidationError("invalid image path", nil)
	default:
		return err
	}
}
