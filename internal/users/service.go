package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/contactbook-backend/internal/contacts"
	"github.com/angelmondragon/contactbook-backend/pkg/db"
	"github.com/angelmondragon/contactbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/angelmondragon/contactbook-backend/pkg/validation"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	userNotFoundMessage         = "user not found"
	emailTakenMessage           = "the email has already been taken"
	wrongCurrentPasswordMessage = "current password is incorrect"
	wrongPasswordMessage        = "invalid password"
)

// Service covers the signed-in user's own account.
type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserDTO, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error
	DeleteAccount(ctx context.Context, userID uuid.UUID, req DeleteAccountRequest) error
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, email string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type passwordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

type sessionRevoker interface {
	RevokeAll(ctx context.Context, userID uuid.UUID) (int, error)
}

type service struct {
	db       *db.Client
	users    userRepository
	hasher   passwordHasher
	sessions sessionRevoker
	logg     *logger.Logger
}

// ServiceParams bundles the dependencies of the account service.
type ServiceParams struct {
	DB       *db.Client
	UserRepo userRepository
	Hasher   passwordHasher
	Sessions sessionRevoker
	Logger   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session revoker is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		db:       params.DB,
		users:    params.UserRepo,
		hasher:   params.Hasher,
		sessions: params.Sessions,
		logg:     params.Logger,
	}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ProfileFromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserDTO, error) {
	if req.Name != nil {
		v := strings.TrimSpace(*req.Name)
		req.Name = &v
	}
	if req.Email != nil {
		v := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &v
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != user.Email {
		taken, err := s.users.EmailTaken(ctx, *req.Email, user.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check email")
		}
		if taken {
			return nil, pkgerrors.Field(pkgerrors.CodeValidation, "email", emailTakenMessage)
		}
		user.Email = *req.Email
	}
	if req.Name != nil {
		user.Name = *req.Name
	}

	if err := s.users.UpdateProfile(ctx, user.ID, user.Name, user.Email); err != nil {
		if db.IsUniqueViolation(err, EmailIndex) {
			return nil, pkgerrors.Field(pkgerrors.CodeValidation, "email", emailTakenMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile")
	}
	return FromModel(user), nil
}

func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.checkPassword(req.CurrentPassword, user.PasswordHash, "current_password", wrongCurrentPasswordMessage); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	return nil
}

// DeleteAccount removes the user and every owned contact in one transaction,
// then revokes all of the user's tokens.
func (s *service) DeleteAccount(ctx context.Context, userID uuid.UUID, req DeleteAccountRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.checkPassword(req.Password, user.PasswordHash, "password", wrongPasswordMessage); err != nil {
		return err
	}

	var removed int64
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := contacts.NewRepository(tx).DeleteByOwner(ctx, user.ID)
		if err != nil {
			return err
		}
		removed = n
		return NewRepository(tx).Delete(ctx, user.ID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete account")
	}

	revoked, err := s.sessions.RevokeAll(ctx, user.ID)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":          user.ID.String(),
		"contacts_removed": removed,
		"tokens_revoked":   revoked,
	})
	if err != nil {
		// Tokens that survive a failed revoke resolve to a missing user.
		s.logg.Error(ctx, "revoke sessions after account deletion", err)
		return nil
	}
	s.logg.Info(ctx, "account deleted")
	return nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, userNotFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

func (s *service) checkPassword(password, hash, field, message string) error {
	ok, err := s.hasher.Verify(password, hash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return pkgerrors.Field(pkgerrors.CodeValidation, field, message)
	}
	return nil
}
