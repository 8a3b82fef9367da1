package dto

import (
	"time"

	"github.com/maputo/user-service/internal/domain"
)

// UserLoginRequest payload for login.
type UserLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserRegisterRequest payload for self-service sign up.
type UserRegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

// UserFormRequest is the multipart form sent by the admin add and update
// screens. The picture travels as the "profileImg" file part.
type UserFormRequest struct {
	CurrentUsername string `form:"currentUsername"`
	FirstName       string `form:"firstName"`
	LastName        string `form:"lastName"`
	Username        string `form:"username"`
	Email           string `form:"email"`
	Role            string `form:"role"`
	IsActive        bool   `form:"isActive"`
	IsNonLocked     bool   `form:"isNonLocked"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID                   int64       `json:"id"`
	UserID               string      `json:"userId"`
	FirstName            string      `json:"firstName"`
	LastName             string      `json:"lastName"`
	Username             string      `json:"username"`
	Email                string      `json:"email"`
	ProfileImageURL      string      `json:"profileImageUrl"`
	LastLoginDate        *time.Time  `json:"lastLoginDate"`
	LastLoginDateDisplay *time.Time  `json:"lastLoginDateDisplay"`
	JoinDate             time.Time   `json:"joinDate"`
	Role                 domain.Role `json:"role"`
	Authorities          []string    `json:"authorities"`
	Active               bool        `json:"active"`
	NotLocked            bool        `json:"notLocked"`
}

// NewUserResponse maps a stored user to its response shape.
func NewUserResponse(u *domain.User) UserResponse {
	authorities := u.Authorities
	if authorities == nil {
		authorities = []string{}
	}
	return UserResponse{
		ID:                   u.ID,
		UserID:               u.UserID,
		FirstName:            u.FirstName,
		LastName:             u.LastName,
		Username:             u.Username,
		Email:                u.Email,
		ProfileImageURL:      u.ProfileImageURL,
		LastLoginDate:        u.LastLoginDate,
		LastLoginDateDisplay: u.LastLoginDateDisplay,
		JoinDate:             u.JoinDate,
		Role:                 u.Role,
		Authorities:          authorities,
		Active:               u.Active,
		NotLocked:            u.NotBlocked,
	}
}

// NewUserListResponse maps a slice of users.
func NewUserListResponse(users []*domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out
}
