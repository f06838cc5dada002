package contacts

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/contactbook-backend/internal/address"
	"github.com/angelmondragon/contactbook-backend/pkg/cpf"
	"github.com/angelmondragon/contactbook-backend/pkg/db"
	"github.com/angelmondragon/contactbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/contactbook-backend/pkg/errors"
	"github.com/angelmondragon/contactbook-backend/pkg/logger"
	"github.com/angelmondragon/contactbook-backend/pkg/pagination"
	"github.com/angelmondragon/contactbook-backend/pkg/validation"
	"github.com/google/uuid"
)

const (
	notFoundMessage     = "contact not found"
	invalidCPFMessage   = "invalid CPF"
	duplicateCPFMessage = "a contact with this CPF already exists"
	invalidDataMessage  = "the given data was invalid"

	defaultSort = "name"
)

var sortColumns = map[string]struct{}{
	"name":       {},
	"cpf":        {},
	"created_at": {},
}

// Service is the owner-scoped contact book. The owner is always explicit.
type Service interface {
	List(ctx context.Context, ownerID uuid.UUID, params ListParams) (*ListResult, error)
	Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*ContactDTO, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*ContactDTO, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, in UpdateInput) (*ContactDTO, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type repository interface {
	List(ctx context.Context, ownerID uuid.UUID, q ListQuery) ([]models.Contact, int64, error)
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Contact, error)
	CPFTaken(ctx context.Context, ownerID uuid.UUID, cpf string, exclude uuid.UUID) (bool, error)
	Create(ctx context.Context, contact *models.Contact) error
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type geocoder interface {
	Geocode(ctx context.Context, req address.GeocodeRequest) (*address.Coordinates, error)
}

type service struct {
	repo     repository
	geocoder geocoder
	logg     *logger.Logger
}

// ServiceParams bundles the dependencies of the contacts service.
type ServiceParams struct {
	Repo     repository
	Geocoder geocoder
	Logger   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("contacts repository is required")
	}
	if params.Geocoder == nil {
		return nil, fmt.Errorf("geocoder is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:     params.Repo,
		geocoder: params.Geocoder,
		logg:     params.Logger,
	}, nil
}

// ShouldRegeocode reports whether an update touches the geocoded address.
// Presence is what counts; a field resent with its current value still
// triggers a new geocode.
func ShouldRegeocode(in UpdateInput) bool {
	return in.CEP != nil || in.State != nil || in.City != nil || in.Street != nil || in.Number != nil
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID, params ListParams) (*ListResult, error) {
	page := pagination.Params{Page: params.Page, PerPage: params.PerPage}.Normalize()

	sort := strings.ToLower(strings.TrimSpace(params.Sort))
	if _, ok := sortColumns[sort]; !ok {
		sort = defaultSort
	}
	desc := strings.EqualFold(strings.TrimSpace(params.Dir), "desc")

	rows, total, err := s.repo.List(ctx, ownerID, ListQuery{
		Search: strings.ToLower(strings.TrimSpace(params.Query)),
		Sort:   sort,
		Desc:   desc,
		Limit:  page.PerPage,
		Offset: page.Offset(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list contacts")
	}

	data := make([]ContactDTO, 0, len(rows))
	for i := range rows {
		data = append(data, *FromModel(&rows[i]))
	}
	return &ListResult{
		Data:        data,
		CurrentPage: page.Page,
		PerPage:     page.PerPage,
		Total:       total,
		LastPage:    pagination.LastPage(total, page.PerPage),
	}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*ContactDTO, error) {
	in = in.normalized()

	fields, err := validation.Collect(in)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validate contact")
	}
	if in.CPF != "" && !cpf.Valid(in.CPF) {
		fields = addField(fields, "cpf", invalidCPFMessage)
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Fields(invalidDataMessage, fields)
	}

	if err := s.ensureCPFAvailable(ctx, ownerID, in.CPF, uuid.Nil); err != nil {
		return nil, err
	}

	contact := in.toModel(ownerID)
	if err := s.geocode(ctx, contact); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, contact); err != nil {
		if db.IsUniqueViolation(err, CPFIndex) {
			return nil, duplicateCPF()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create contact")
	}
	return FromModel(contact), nil
}

func (s *service) Get(ctx context.Context, ownerID, id uuid.UUID) (*ContactDTO, error) {
	contact, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return FromModel(contact), nil
}

func (s *service) Update(ctx context.Context, ownerID, id uuid.UUID, in UpdateInput) (*ContactDTO, error) {
	contact, err := s.load(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	in = in.normalized()
	fields, err := validation.Collect(in)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validate contact")
	}
	if in.CPF != nil && *in.CPF != "" && !cpf.Valid(*in.CPF) {
		fields = addField(fields, "cpf", invalidCPFMessage)
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Fields(invalidDataMessage, fields)
	}

	if in.CPF != nil {
		if err := s.ensureCPFAvailable(ctx, ownerID, *in.CPF, contact.ID); err != nil {
			return nil, err
		}
	}

	in.apply(contact)
	if ShouldRegeocode(in) {
		if err := s.geocode(ctx, contact); err != nil {
			return nil, err
		}
		ctx = s.logg.WithContactID(ctx, contact.ID.String())
		s.logg.Info(ctx, "contact address re-geocoded")
	}

	if err := s.repo.Update(ctx, contact); err != nil {
		if db.IsUniqueViolation(err, CPFIndex) {
			return nil, duplicateCPF()
		}
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update contact")
	}

	return s.Get(ctx, ownerID, id)
}

func (s *service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if _, err := s.load(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete contact")
	}
	return nil
}

func (s *service) load(ctx context.Context, ownerID, id uuid.UUID) (*models.Contact, error) {
	contact, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, notFoundMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load contact")
	}
	return contact, nil
}

func (s *service) ensureCPFAvailable(ctx context.Context, ownerID uuid.UUID, value string, exclude uuid.UUID) error {
	taken, err := s.repo.CPFTaken(ctx, ownerID, value, exclude)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check cpf uniqueness")
	}
	if taken {
		s.logg.Warn(s.logg.WithField(ctx, "cpf", cpf.Redact(value)), "contact cpf already registered")
		return duplicateCPF()
	}
	return nil
}

// geocode resolves the contact's current address and stores the coordinates.
func (s *service) geocode(ctx context.Context, contact *models.Contact) error {
	coords, err := s.geocoder.Geocode(ctx, address.GeocodeRequest{
		Street:     contact.Street,
		Number:     contact.Number,
		City:       contact.City,
		State:      contact.State,
		PostalCode: contact.CEP,
	})
	if err != nil {
		return address.ToAppError(err)
	}
	contact.Lat = coords.Latitude
	contact.Lng = coords.Longitude
	return nil
}

func duplicateCPF() error {
	return pkgerrors.Field(pkgerrors.CodeValidation, "cpf", duplicateCPFMessage)
}

func addField(fields pkgerrors.FieldErrors, field, message string) pkgerrors.FieldErrors {
	if fields == nil {
		fields = pkgerrors.FieldErrors{}
	}
	fields.Add(field, message)
	return fields
}

var _ repository = (*Repository)(nil)
