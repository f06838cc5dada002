package contacts

import (
	"context"

	"github.com/angelmondragon/contactbook-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CPFIndex is the unique index backing (owner, cpf) uniqueness.
const CPFIndex = "idx_contacts_user_cpf"

var updatableColumns = []string{
	"name", "cpf", "phone", "cep", "state", "city", "street", "number", "complement", "lat", "lng", "updated_at",
}

// ListQuery is the repository form of a listing request; Sort must already be
// one of the allowed columns.
type ListQuery struct {
	Search string
	Sort   string
	Desc   bool
	Limit  int
	Offset int
}

// Repository persists contacts. Every method is scoped by owner.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, ownerID uuid.UUID, q ListQuery) ([]models.Contact, int64, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", ownerID)
		if q.Search != "" {
			like := "%" + q.Search + "%"
			db = db.Where("(LOWER(name) LIKE ? OR cpf LIKE ?)", like, like)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Contact{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Contact
	err := r.db.WithContext(ctx).
		Scopes(filter).
		Order(clause.OrderByColumn{Column: clause.Column{Name: q.Sort}, Desc: q.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// FindByID returns gorm.ErrRecordNotFound for missing and foreign contacts alike.
func (r *Repository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Contact, error) {
	var contact models.Contact
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

// CPFTaken reports whether another contact of the owner already uses cpf.
func (r *Repository) CPFTaken(ctx context.Context, ownerID uuid.UUID, cpf string, exclude uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("user_id = ? AND cpf = ?", ownerID, cpf)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) Create(ctx context.Context, contact *models.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

// Update writes every mutable column of contact.
func (r *Repository) Update(ctx context.Context, contact *models.Contact) error {
	res := r.db.WithContext(ctx).
		Model(contact).
		Where("user_id = ?", contact.UserID).
		Select(updatableColumns).
		Updates(contact)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&models.Contact{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteByOwner removes every contact of the owner.
func (r *Repository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", ownerID).Delete(&models.Contact{})
	return res.RowsAffected, res.Error
}
