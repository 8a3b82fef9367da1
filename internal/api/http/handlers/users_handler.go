package handlers

import (
	"context"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/maputo/user-service/internal/api/dto"
	"github.com/maputo/user-service/internal/auth"
	"github.com/maputo/user-service/internal/domain"
	"github.com/maputo/user-service/internal/service"
	apperrors "github.com/maputo/user-service/pkg/util/errorutil"
)

const (
	profileImageField = "profileImg"

	UserDeletedMessage   = "User was deleted successfully"
	PasswordSentTemplate = "An email with new password sent to: "
)

// ImageReader serves stored and generated profile pictures.
type ImageReader interface {
	Open(username, filename string) ([]byte, error)
	FetchTemporaryImage(ctx context.Context, username string) ([]byte, string, error)
}

// UsersHandler exposes the /user endpoints.
type UsersHandler struct {
	users       *service.UserService
	images      ImageReader
	tokenHeader string
}

// NewUsersHandler constructs handler. The login token is returned in tokenHeader.
func NewUsersHandler(users *service.UserService, images ImageReader, tokenHeader string) *UsersHandler {
	if tokenHeader == "" {
		tokenHeader = "Jwt-Token"
	}
	return &UsersHandler{users: users, images: images, tokenHeader: tokenHeader}
}

// Login handles POST /user/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	user, token, err := h.users.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return mapServiceError(err)
	}

	c.Set(h.tokenHeader, token)
	return c.JSON(dto.NewUserResponse(user))
}

// Register handles POST /user/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Username == "" || req.Email == "" {
		return apperrors.NewValidationError("username and email required", nil)
	}

	user, err := h.users.Register(c.UserContext(), req.FirstName, req.LastName, req.Username, req.Email)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

// AddUser handles POST /user/add.
func (h *UsersHandler) AddUser(c *fiber.Ctx) error {
	input, closeImage, err := parseUserForm(c)
	if err != nil {
		return err
	}
	defer closeImage()

	user, err := h.users.AddNewUser(c.UserContext(), input)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

// UpdateUser handles POST /user/update.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	current := utils.CopyString(c.FormValue("currentUsername"))
	if current == "" {
		return apperrors.NewValidationError("currentUsername required", nil)
	}
	input, closeImage, err := parseUserForm(c)
	if err != nil {
		return err
	}
	defer closeImage()

	user, err := h.users.UpdateUser(c.UserContext(), current, input)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

// FindUser handles GET /user/find/:username.
func (h *UsersHandler) FindUser(c *fiber.Ctx) error {
	user, err := h.users.FindUserByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

// ListUsers handles GET /user/list.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.users.ListUsers(c.UserContext())
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(dto.NewUserListResponse(users))
}

// ResetPassword handles POST /user/resetpassword/:email.
func (h *UsersHandler) ResetPassword(c *fiber.Ctx) error {
	email := c.Params("email")
	if err := h.users.ResetPassword(c.UserContext(), email); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(dto.NewHTTPResponse(http.StatusOK, PasswordSentTemplate+email))
}

// DeleteUser handles DELETE /user/delete/:id.
func (h *UsersHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("invalid user id", nil)
	}
	if err := h.users.DeleteUser(c.UserContext(), id); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(dto.NewHTTPResponse(http.StatusOK, UserDeletedMessage))
}

// UpdateProfileImage handles POST /user/updateProfileImage. Callers without
// user:update may only change their own picture.
func (h *UsersHandler) UpdateProfileImage(c *fiber.Ctx) error {
	username := c.FormValue("username")
	if username == "" {
		return apperrors.NewValidationError("username required", nil)
	}
	sc, ok := auth.SecurityContextFrom(c)
	if !ok {
		return auth.AuthenticationEntryPoint(c)
	}
	if sc.Username != username && !sc.HasAuthority(domain.AuthorityUserUpdate) {
		return auth.AccessDeniedHandler(c)
	}

	header, err := c.FormFile(profileImageField)
	if err != nil {
		return apperrors.NewValidationError("profileImg required", nil)
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable profileImg", nil)
	}
	defer file.Close()

	user, err := h.users.UpdateProfileImage(c.UserContext(), username, file)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

// ProfileImage handles GET /user/image/:username/:filename.
func (h *UsersHandler) ProfileImage(c *fiber.Ctx) error {
	data, err := h.images.Open(c.Params("username"), c.Params("filename"))
	if err != nil {
		return mapServiceError(err)
	}
	c.Type("jpg")
	return c.Send(data)
}

// TemporaryProfileImage handles GET /user/image/profile/:username.
func (h *UsersHandler) TemporaryProfileImage(c *fiber.Ctx) error {
	data, contentType, err := h.images.FetchTemporaryImage(c.UserContext(), c.Params("username"))
	if err != nil {
		return mapServiceError(err)
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}

func parseUserForm(c *fiber.Ctx) (service.UserInput, func(), error) {
	noop := func() {}
	var req dto.UserFormRequest
	if err := c.BodyParser(&req); err != nil {
		return service.UserInput{}, noop, apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" {
		return service.UserInput{}, noop, apperrors.NewValidationError("username and email required", nil)
	}

	// Form values alias the pooled request buffer; the service keeps them.
	input := service.UserInput{
		FirstName:  utils.CopyString(req.FirstName),
		LastName:   utils.CopyString(req.LastName),
		Username:   utils.CopyString(req.Username),
		Email:      utils.CopyString(req.Email),
		Role:       utils.CopyString(req.Role),
		Active:     req.IsActive,
		NotBlocked: req.IsNonLocked,
	}

	header, err := c.FormFile(profileImageField)
	if err != nil {
		// The picture is optional.
		return input, noop, nil
	}
	file, err := header.Open()
	if err != nil {
		return service.UserInput{}, noop, apperrors.NewValidationError("unreadable profileImg", nil)
	}
	input.ProfileImage = file
	return input, closer(file), nil
}

func closer(f multipart.File) func() {
	return func() { _ = f.Close() }
}
