package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/contactbook-backend/api/responses"
	"github.com/angelmondragon/contactbook-backend/api/validators"
	"github.com/angelmondragon/contactbook-backend/internal/contacts"
	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/angelmondragon/contactbook-backend/pkg/pagination"
)

// ContactsList clamps out-of-range paging instead of rejecting it; only
// non-numeric values fail.
func ContactsList(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}

		page, err := validators.QueryInt(r, "page", 1)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		perPage, err := validators.QueryInt(r, "per_page", pagination.DefaultPerPage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paging := pagination.Params{Page: page, PerPage: perPage}.Clamp()

		result, err := svc.List(r.Context(), userID, contacts.ListParams{
			Query:   validators.QueryString(r, "q"),
			Sort:    validators.QueryString(r, "sort"),
			Dir:     validators.QueryString(r, "dir"),
			Page:    paging.Page,
			PerPage: paging.PerPage,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ContactsCreate decodes without validating; the service normalizes cpf and
// cep before checking them.
func ContactsCreate(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}

		var body contacts.CreateInput
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contact, err := svc.Create(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, contact)
	}
}

func ContactsShow(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		contactID, ok := contactIDParam(w, r, logg)
		if !ok {
			return
		}

		contact, err := svc.Get(r.Context(), userID, contactID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contact)
	}
}

func ContactsUpdate(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		contactID, ok := contactIDParam(w, r, logg)
		if !ok {
			return
		}

		var body contacts.UpdateInput
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contact, err := svc.Update(r.Context(), userID, contactID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contact)
	}
}

func ContactsDelete(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r, logg)
		if !ok {
			return
		}
		contactID, ok := contactIDParam(w, r, logg)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), userID, contactID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// A malformed id can never name an owned contact, so it reads as not found.
func contactIDParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "contact not found"))
		return uuid.Nil, false
	}
	return id, true
}
