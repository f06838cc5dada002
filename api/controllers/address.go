package controllers

import (
	"net/http"

	"github.com/angelmondragon/contactbook-backend/api/responses"
	"github.com/angelmondragon/contactbook-backend/api/validators"
	"github.com/angelmondragon/contactbook-backend/internal/address"
	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/angelmondragon/contactbook-backend/pkg/validation"
)

type addressLookupQuery struct {
	CEP string `json:"cep" validate:"required"`
}

type addressSearchQuery struct {
	UF   string `json:"uf" validate:"required,len=2,alpha"`
	City string `json:"city" validate:"required,max=255"`
	Q    string `json:"q" validate:"required,max=255"`
}

// AddressLookup resolves a CEP through ViaCEP.
func AddressLookup(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}

		q := addressLookupQuery{CEP: validators.QueryString(r, "cep")}
		if err := validation.Struct(q); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		addr, err := svc.LookupByPostalCode(ctx, q.CEP)
		if err != nil {
			responses.WriteError(ctx, logg, w, address.ToAppError(err))
			return
		}
		responses.WriteSuccess(w, map[string]any{"address": addr})
	}
}

// AddressSearch lists CEPs matching a street fragment within a city.
func AddressSearch(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "address service unavailable"))
			return
		}

		q := addressSearchQuery{
			UF:   validators.QueryString(r, "uf"),
			City: validators.QueryString(r, "city"),
			Q:    validators.QueryString(r, "q"),
		}
		if err := validation.Struct(q); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, err := svc.Search(ctx, address.SearchRequest{State: q.UF, City: q.City, Query: q.Q})
		if err != nil {
			responses.WriteError(ctx, logg, w, address.ToAppError(err))
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
