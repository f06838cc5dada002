package address

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/contactbook-backend/pkg/cpf"
	"github.com/angelmondragon/contactbook-backend/pkg/maps"
	"github.com/angelmondragon/contactbook-backend/pkg/upstream"
	"github.com/angelmondragon/contactbook-backend/pkg/viacep"
	"github.com/shopspring/decimal"
)

const coordinatePlaces = 7

// Service resolves postal codes and geocodes addresses.
type Service interface {
	LookupByPostalCode(ctx context.Context, cep string) (*Address, error)
	Search(ctx context.Context, req SearchRequest) ([]Address, error)
	Geocode(ctx context.Context, req GeocodeRequest) (*Coordinates, error)
}

type postalProvider interface {
	Lookup(ctx context.Context, cep string) (*viacep.Entry, error)
	Search(ctx context.Context, state, city, query string) ([]viacep.Entry, error)
}

type geocoder interface {
	Geocode(ctx context.Context, address string) (*maps.LatLng, error)
}

type service struct {
	postal   postalProvider
	geocoder geocoder
}

// ServiceParams bundles the upstream clients used by the gateway.
type ServiceParams struct {
	Postal   postalProvider
	Geocoder geocoder
}

// NewService builds the address gateway.
func NewService(params ServiceParams) (Service, error) {
	if params.Postal == nil {
		return nil, fmt.Errorf("postal provider is required")
	}
	if params.Geocoder == nil {
		return nil, fmt.Errorf("geocoder is required")
	}
	return &service{
		postal:   params.Postal,
		geocoder: params.Geocoder,
	}, nil
}

func (s *service) LookupByPostalCode(ctx context.Context, cep string) (*Address, error) {
	requested := digits(cep)
	if len(requested) != 8 {
		return nil, &Error{Op: OpLookup, Kind: KindInvalidRequest, Message: "cep must have 8 digits"}
	}

	entry, err := s.postal.Lookup(ctx, requested)
	if err != nil {
		return nil, postalError(OpLookup, err)
	}

	addr := fromEntry(*entry)
	if addr.CEP == "" {
		addr.CEP = requested
	}
	return &addr, nil
}

func (s *service) Search(ctx context.Context, req SearchRequest) ([]Address, error) {
	state := strings.ToUpper(strings.TrimSpace(req.State))
	city := strings.TrimSpace(req.City)
	query := strings.TrimSpace(req.Query)
	if len(state) != 2 || city == "" || query == "" {
		return nil, &Error{Op: OpSearch, Kind: KindInvalidRequest, Message: "state, city and query are required"}
	}

	entries, err := s.postal.Search(ctx, state, city, query)
	if err != nil {
		return nil, postalError(OpSearch, err)
	}

	out := make([]Address, 0, len(entries))
	for _, entry := range entries {
		out = append(out, fromEntry(entry))
	}
	return out, nil
}

func (s *service) Geocode(ctx context.Context, req GeocodeRequest) (*Coordinates, error) {
	loc, err := s.geocoder.Geocode(ctx, req.Query())
	if err != nil {
		return nil, geocodeError(err)
	}
	return &Coordinates{
		Latitude:  round(loc.Latitude),
		Longitude: round(loc.Longitude),
	}, nil
}

func fromEntry(e viacep.Entry) Address {
	return Address{
		CEP:      digits(e.CEP),
		State:    e.State,
		City:     e.City,
		Street:   e.Street,
		District: e.District,
	}
}

func postalError(op Op, err error) error {
	var statusErr *upstream.StatusError
	switch {
	case errors.Is(err, viacep.ErrNotFound):
		return &Error{Op: op, Kind: KindNotFound, Message: "postal code not found", Err: err}
	case errors.Is(err, upstream.ErrUnavailable):
		return &Error{Op: op, Kind: KindUnavailable, Message: "postal code service unavailable, try again later", Err: err}
	case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusBadRequest:
		return &Error{Op: op, Kind: KindInvalidRequest, Message: "postal code service rejected the request", Err: err}
	default:
		return &Error{Op: op, Kind: KindUnavailable, Message: "postal code service unavailable, try again later", Err: err}
	}
}

func geocodeError(err error) error {
	if errors.Is(err, upstream.ErrUnavailable) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Op: OpGeocode, Kind: KindUnavailable, Message: "geocoding service unavailable, try again later", Err: err}
	}
	if errors.Is(err, maps.ErrNoLocation) {
		return &Error{Op: OpGeocode, Kind: KindNotFound, Message: "could not obtain coordinates for the address", Err: err}
	}

	var apiErr *maps.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case maps.StatusZeroResults:
			return &Error{Op: OpGeocode, Kind: KindNotFound, Message: "address not found for geocoding", Err: err}
		case maps.StatusOverQueryLimit:
			return &Error{Op: OpGeocode, Kind: KindRateLimited, Message: "geocoding quota exceeded, try again later", Err: err}
		case maps.StatusRequestDenied:
			return &Error{Op: OpGeocode, Kind: KindAccessDenied, Message: "access to the geocoding service was denied", Err: err}
		case maps.StatusInvalidRequest:
			return &Error{Op: OpGeocode, Kind: KindInvalidRequest, Message: "invalid geocoding request", Err: err}
		}
		detail := apiErr.Message
		if detail == "" {
			detail = "unknown error"
		}
		return &Error{Op: OpGeocode, Kind: KindProvider, Message: "geocoding service error: " + detail, Err: err}
	}

	// transport details stay in the chain for logs, out of the message
	return &Error{Op: OpGeocode, Kind: KindProvider, Message: "geocoding service error", Err: err}
}

func round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(coordinatePlaces).InexactFloat64()
}

// digits keeps the numeric characters of a postal code; same rule as CPFs.
func digits(s string) string {
	return cpf.Normalize(s)
}
