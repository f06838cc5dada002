package users

import (
	"time"

	"github.com/angelmondragon/contactbook-backend/pkg/db/models"
	"github.com/google/uuid"
)

// UserDTO is the public summary returned by auth and profile updates.
type UserDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// ProfileDTO is what GET /me returns.
type ProfileDTO struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
}

// UpdateProfileRequest changes name and/or email; absent fields are kept.
type UpdateProfileRequest struct {
	Name  *string `json:"name" validate:"omitnil,min=1,max=255"`
	Email *string `json:"email" validate:"omitnil,email,max=255"`
}

// ChangePasswordRequest carries the current password and its replacement.
type ChangePasswordRequest struct {
	CurrentPassword      string `json:"current_password" validate:"required"`
	Password             string `json:"password" validate:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// DeleteAccountRequest confirms account removal with the password.
type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{ID: u.ID, Name: u.Name, Email: u.Email}
}

func ProfileFromModel(u *models.User) *ProfileDTO {
	if u == nil {
		return nil
	}
	return &ProfileDTO{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		EmailVerifiedAt: u.EmailVerifiedAt,
		CreatedAt:       u.CreatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Name:         c.Name,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
	}
}
