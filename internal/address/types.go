package address

import (
	"errors"
	"fmt"

	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
)

// Address is a structured Brazilian address as exposed by the API.
type Address struct {
	CEP      string `json:"cep"`
	State    string `json:"state"`
	City     string `json:"city"`
	Street   string `json:"street"`
	District string `json:"district"`
}

// SearchRequest narrows an address search to a city of a state.
type SearchRequest struct {
	State string
	City  string
	Query string
}

// GeocodeRequest carries the address snapshot to be geocoded.
type GeocodeRequest struct {
	Street     string
	Number     string
	City       string
	State      string
	PostalCode string
}

// Query renders the request the way the geocoder expects it.
func (r GeocodeRequest) Query() string {
	return fmt.Sprintf("%s, %s, %s - %s, %s", r.Street, r.Number, r.City, r.State, r.PostalCode)
}

// Coordinates are decimal degrees rounded to 7 places.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Op names the gateway operation that failed.
type Op string

const (
	OpLookup  Op = "lookup"
	OpSearch  Op = "search"
	OpGeocode Op = "geocode"
)

// Kind classifies gateway failures.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindRateLimited
	KindAccessDenied
	KindInvalidRequest
	KindProvider
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindAccessDenied:
		return "access_denied"
	case KindInvalidRequest:
		return "invalid_request"
	case KindProvider:
		return "provider_error"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is the only error type returned by the gateway.
type Error struct {
	Op      Op
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("address %s: %s: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("address %s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a gateway error, or 0 for anything else.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return 0
}

// ToAppError translates a gateway failure into the API error taxonomy.
// Postal lookups that find nothing are 404s; every semantic geocoding failure
// is reported against the submitted address as a 422.
func ToAppError(err error) *pkgerrors.Error {
	if err == nil {
		return nil
	}
	if appErr := pkgerrors.As(err); appErr != nil {
		return appErr
	}

	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "address resolution failed")
	}

	switch {
	case gwErr.Kind == KindUnavailable:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, gwErr.Message)
	case gwErr.Op == OpGeocode:
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamRejected, err, gwErr.Message).
			WithDetails(pkgerrors.FieldErrors{"address": {gwErr.Message}})
	case gwErr.Kind == KindNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, gwErr.Message)
	case gwErr.Kind == KindInvalidRequest:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, gwErr.Message).
			WithDetails(pkgerrors.FieldErrors{"cep": {gwErr.Message}})
	default:
		return pkgerrors.Wrap(pkgerrors.CodeUpstreamRejected, err, gwErr.Message)
	}
}
