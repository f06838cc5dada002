package contacts

import (
	"strings"
	"time"

	"github.com/angelmondragon/contactbook-backend/pkg/cpf"
	"github.com/angelmondragon/contactbook-backend/pkg/db/models"
	"github.com/angelmondragon/contactbook-backend/pkg/types"
	"github.com/google/uuid"
)

// ContactDTO is the transport shape of a contact.
type ContactDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	CPF        string    `json:"cpf"`
	Phone      string    `json:"phone"`
	CEP        string    `json:"cep"`
	State      string    `json:"state"`
	City       string    `json:"city"`
	Street     string    `json:"street"`
	Number     string    `json:"number"`
	Complement *string   `json:"complement"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func FromModel(c *models.Contact) *ContactDTO {
	if c == nil {
		return nil
	}
	return &ContactDTO{
		ID:         c.ID,
		Name:       c.Name,
		CPF:        c.CPF,
		Phone:      c.Phone,
		CEP:        c.CEP,
		State:      c.State,
		City:       c.City,
		Street:     c.Street,
		Number:     c.Number,
		Complement: c.Complement,
		Lat:        c.Lat,
		Lng:        c.Lng,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// CreateInput is the full payload of a new contact.
type CreateInput struct {
	Name       string  `json:"name" validate:"required,max=255"`
	CPF        string  `json:"cpf" validate:"required"`
	Phone      string  `json:"phone" validate:"required,max=20"`
	CEP        string  `json:"cep" validate:"required,len=8,numeric"`
	State      string  `json:"state" validate:"required,len=2,alpha"`
	City       string  `json:"city" validate:"required,max=255"`
	Street     string  `json:"street" validate:"required,max=255"`
	Number     string  `json:"number" validate:"required,max=20"`
	Complement *string `json:"complement" validate:"omitnil,max=255"`
}

// UpdateInput is a partial update; nil fields are left untouched.
type UpdateInput struct {
	Name       *string `json:"name" validate:"omitnil,min=1,max=255"`
	CPF        *string `json:"cpf" validate:"omitnil,min=1"`
	Phone      *string `json:"phone" validate:"omitnil,min=1,max=20"`
	CEP        *string `json:"cep" validate:"omitnil,len=8,numeric"`
	State      *string `json:"state" validate:"omitnil,len=2,alpha"`
	City       *string `json:"city" validate:"omitnil,min=1,max=255"`
	Street     *string `json:"street" validate:"omitnil,min=1,max=255"`
	Number     *string `json:"number" validate:"omitnil,min=1,max=20"`
	Complement *string `json:"complement" validate:"omitnil,max=255"`
}

// ListParams filters and orders the owner's contacts.
type ListParams struct {
	Query   string
	Sort    string
	Dir     string
	Page    int
	PerPage int
}

// ListResult is one page of contacts.
type ListResult = types.Page[ContactDTO]

func (in CreateInput) normalized() CreateInput {
	in.Name = strings.TrimSpace(in.Name)
	in.CPF = cpf.Normalize(in.CPF)
	in.Phone = strings.TrimSpace(in.Phone)
	in.CEP = cpf.Normalize(in.CEP)
	in.State = strings.ToUpper(strings.TrimSpace(in.State))
	in.City = strings.TrimSpace(in.City)
	in.Street = strings.TrimSpace(in.Street)
	in.Number = strings.TrimSpace(in.Number)
	in.Complement = trimmedOrNil(in.Complement)
	return in
}

func (in UpdateInput) normalized() UpdateInput {
	in.Name = trimmed(in.Name, strings.TrimSpace)
	in.CPF = trimmed(in.CPF, cpf.Normalize)
	in.Phone = trimmed(in.Phone, strings.TrimSpace)
	in.CEP = trimmed(in.CEP, cpf.Normalize)
	in.State = trimmed(in.State, func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) })
	in.City = trimmed(in.City, strings.TrimSpace)
	in.Street = trimmed(in.Street, strings.TrimSpace)
	in.Number = trimmed(in.Number, strings.TrimSpace)
	if in.Complement != nil {
		v := strings.TrimSpace(*in.Complement)
		in.Complement = &v
	}
	return in
}

func (in CreateInput) toModel(ownerID uuid.UUID) *models.Contact {
	return &models.Contact{
		UserID:     ownerID,
		Name:       in.Name,
		CPF:        in.CPF,
		Phone:      in.Phone,
		CEP:        in.CEP,
		State:      in.State,
		City:       in.City,
		Street:     in.Street,
		Number:     in.Number,
		Complement: in.Complement,
	}
}

// apply copies every supplied field onto c. An empty complement clears it.
func (in UpdateInput) apply(c *models.Contact) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.Name, in.Name)
	set(&c.CPF, in.CPF)
	set(&c.Phone, in.Phone)
	set(&c.CEP, in.CEP)
	set(&c.State, in.State)
	set(&c.City, in.City)
	set(&c.Street, in.Street)
	set(&c.Number, in.Number)
	if in.Complement != nil {
		c.Complement = trimmedOrNil(in.Complement)
	}
}

func trimmed(v *string, fn func(string) string) *string {
	if v == nil {
		return nil
	}
	out := fn(*v)
	return &out
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	out := strings.TrimSpace(*v)
	if out == "" {
		return nil
	}
	return &out
}
