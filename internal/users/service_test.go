package users

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/contactbook-backend/pkg/config"
	"github.com/angelmondragon/contactbook-backend/pkg/db"
	"github.com/angelmondragon/contactbook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/contactbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/angelmondragon/contactbook-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testPasswordConfig = config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

type fakeRevoker struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeRevoker) RevokeAll(_ context.Context, userID uuid.UUID) (int, error) {
	f.calls = append(f.calls, userID)
	return 2, f.err
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	sessions *fakeRevoker
	user     *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	conn := dbtest.Open(t)
	hasher := security.NewHasher(testPasswordConfig)
	hash, err := hasher.Hash("secret123")
	require.NoError(t, err)

	repo := NewRepository(conn)
	user, err := repo.Create(context.Background(), CreateUserDTO{Name: "Alice", Email: "alice@example.com", PasswordHash: hash})
	require.NoError(t, err)

	sessions := &fakeRevoker{}
	svc, err := NewService(ServiceParams{
		DB:       db.FromConn(conn),
		UserRepo: repo,
		Hasher:   hasher,
		Sessions: sessions,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)

	return &fixture{db: conn, svc: svc, sessions: sessions, user: user}
}

func seedContact(t *testing.T, conn *gorm.DB, ownerID uuid.UUID, cpf string) {
	t.Helper()
	require.NoError(t, conn.Create(&models.Contact{
		UserID: ownerID, Name: "Contact " + cpf, CPF: cpf, Phone: "41999990000",
		CEP: "80010000", State: "PR", City: "Curitiba", Street: "Rua XV", Number: "1",
		Lat: -25.4283567, Lng: -49.2732515,
	}).Error)
}

func ptr(s string) *string { return &s }

func TestMe(t *testing.T) {
	f := newFixture(t)

	me, err := f.svc.Me(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, me.ID)
	assert.Equal(t, "alice@example.com", me.Email)
	assert.Nil(t, me.EmailVerifiedAt)
	assert.False(t, me.CreatedAt.IsZero())

	_, err = f.svc.Me(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.svc.UpdateProfile(ctx, f.user.ID, UpdateProfileRequest{Name: ptr("Alice Souza"), Email: ptr(" ALICE@example.com ")})
	require.NoError(t, err)
	assert.Equal(t, "Alice Souza", out.Name)
	assert.Equal(t, "alice@example.com", out.Email)

	other, err := NewRepository(f.db).Create(ctx, CreateUserDTO{Name: "Bob", Email: "bob@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	_, err = f.svc.UpdateProfile(ctx, other.ID, UpdateProfileRequest{Email: ptr("alice@example.com")})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	fields := pkgerrors.As(err).Details().(pkgerrors.FieldErrors)
	assert.Equal(t, []string{emailTakenMessage}, fields["email"])

	_, err = f.svc.UpdateProfile(ctx, other.ID, UpdateProfileRequest{Email: ptr("not-an-email")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, f.user.ID, ChangePasswordRequest{CurrentPassword: "wrong-one", Password: "newsecret1", PasswordConfirmation: "newsecret1"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, pkgerrors.As(err).Details().(pkgerrors.FieldErrors), "current_password")

	err = f.svc.ChangePassword(ctx, f.user.ID, ChangePasswordRequest{CurrentPassword: "secret123", Password: "short", PasswordConfirmation: "other"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	fields := pkgerrors.As(err).Details().(pkgerrors.FieldErrors)
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "password_confirmation")

	require.NoError(t, f.svc.ChangePassword(ctx, f.user.ID, ChangePasswordRequest{CurrentPassword: "secret123", Password: "newsecret1", PasswordConfirmation: "newsecret1"}))

	stored, err := NewRepository(f.db).FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	ok, err := security.NewHasher(testPasswordConfig).Verify("newsecret1", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteAccountWrongPasswordKeepsEverything(t *testing.T) {
	f := newFixture(t)
	seedContact(t, f.db, f.user.ID, "39053344705")

	err := f.svc.DeleteAccount(context.Background(), f.user.ID, DeleteAccountRequest{Password: "nope"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, 422, pkgerrors.MetadataFor(pkgerrors.As(err).Code()).HTTPStatus)

	var users, contacts int64
	require.NoError(t, f.db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, f.db.Model(&models.Contact{}).Count(&contacts).Error)
	assert.EqualValues(t, 1, users)
	assert.EqualValues(t, 1, contacts)
	assert.Empty(t, f.sessions.calls)
}

func TestDeleteAccountRemovesUserContactsAndTokens(t *testing.T) {
	f := newFixture(t)
	seedContact(t, f.db, f.user.ID, "39053344705")
	seedContact(t, f.db, f.user.ID, "11144477735")

	other, err := NewRepository(f.db).Create(context.Background(), CreateUserDTO{Name: "Bob", Email: "bob@example.com", PasswordHash: "x"})
	require.NoError(t, err)
	seedContact(t, f.db, other.ID, "39053344705")

	require.NoError(t, f.svc.DeleteAccount(context.Background(), f.user.ID, DeleteAccountRequest{Password: "secret123"}))

	var users, contacts int64
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", f.user.ID).Count(&users).Error)
	require.NoError(t, f.db.Model(&models.Contact{}).Where("user_id = ?", f.user.ID).Count(&contacts).Error)
	assert.Zero(t, users)
	assert.Zero(t, contacts)

	require.NoError(t, f.db.Model(&models.Contact{}).Where("user_id = ?", other.ID).Count(&contacts).Error)
	assert.EqualValues(t, 1, contacts)
	assert.Equal(t, []uuid.UUID{f.user.ID}, f.sessions.calls)
}

func TestDeleteAccountToleratesRevokeFailure(t *testing.T) {
	f := newFixture(t)
	f.sessions.err = errors.New("redis down")

	require.NoError(t, f.svc.DeleteAccount(context.Background(), f.user.ID, DeleteAccountRequest{Password: "secret123"}))
	_, err := f.svc.Me(context.Background(), f.user.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}
