package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/contactbook-backend/api/middleware"
	"github.com/angelmondragon/contactbook-backend/api/responses"
	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
)

// currentUser pulls the authenticated user id or writes a 401.
func currentUser(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unauthenticated"))
		return uuid.Nil, false
	}
	return userID, true
}
