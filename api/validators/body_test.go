package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(body))
}

func TestDecodeJSONBody(t *testing.T) {
	var dst loginBody
	require.NoError(t, DecodeJSONBody(post(`{"email":"ana@example.com","password":"secret123"}`), &dst))
	assert.Equal(t, "ana@example.com", dst.Email)
}

func TestDecodeJSONBodyEmpty(t *testing.T) {
	err := DecodeJSONBody(post(""), &loginBody{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, "request body is required", pkgerrors.As(err).Message())
}

func TestDecodeJSONBodyUnknownField(t *testing.T) {
	err := DecodeJSONBody(post(`{"email":"ana@example.com","password":"x","role":"admin"}`), &loginBody{})
	require.Error(t, err)
	fields, ok := pkgerrors.As(err).Details().(pkgerrors.FieldErrors)
	require.True(t, ok)
	assert.Contains(t, fields, "body")
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	err := DecodeJSONBody(post(`{"email":"nope"}`), &loginBody{})
	require.Error(t, err)
	fields := pkgerrors.As(err).Details().(pkgerrors.FieldErrors)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
}

func TestDecodeJSONSkipsValidation(t *testing.T) {
	var dst loginBody
	require.NoError(t, DecodeJSON(post(`{"email":"nope"}`), &dst))
	assert.Equal(t, "nope", dst.Email)
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&per_page=abc&big=1000&neg=-2", nil)

	v, err := QueryInt(req, "page", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	v, err = QueryInt(req, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = QueryInt(req, "big", 1)
	require.NoError(t, err)
	assert.Equal(t, 1000, v)

	v, err = QueryInt(req, "neg", 1)
	require.NoError(t, err)
	assert.Equal(t, -2, v)

	_, err = QueryInt(req, "per_page", 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
