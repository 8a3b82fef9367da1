package domain

import "time"

// User is the stored account record.
type User struct {
	ID                   int64      `json:"id"`
	UserID               string     `json:"userId"`
	FirstName            string     `json:"firstName"`
	LastName             string     `json:"lastName"`
	Username             string     `json:"username"`
	PasswordHash         string     `json:"-"`
	Email                string     `json:"email"`
	ProfileImageURL      string     `json:"profileImageUrl"`
	LastLoginDate        *time.Time `json:"lastLoginDate"`
	LastLoginDateDisplay *time.Time `json:"lastLoginDateDisplay"`
	JoinDate             time.Time  `json:"joinDate"`
	Role                 Role       `json:"role"`
	Authorities          []string   `json:"authorities"`
	Active               bool       `json:"active"`
	NotBlocked           bool       `json:"notBlocked"`
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	if u.Authorities != nil {
		cp.Authorities = append([]string(nil), u.Authorities...)
	}
	if u.LastLoginDate != nil {
		t := *u.LastLoginDate
		cp.LastLoginDate = &t
	}
	if u.LastLoginDateDisplay != nil {
		t := *u.LastLoginDateDisplay
		cp.LastLoginDateDisplay = &t
	}
	return &cp
}
