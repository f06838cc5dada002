package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Contact is a single address book entry, always scoped to its owning user.
type Contact struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_contacts_user_cpf,priority:1"`
	Name       string    `gorm:"column:name;size:255;not null"`
	CPF        string    `gorm:"column:cpf;size:11;not null;uniqueIndex:idx_contacts_user_cpf,priority:2"`
	Phone      string    `gorm:"column:phone;size:20;not null"`
	CEP        string    `gorm:"column:cep;size:8;not null"`
	State      string    `gorm:"column:state;size:2;not null"`
	City       string    `gorm:"column:city;size:255;not null"`
	Street     string    `gorm:"column:street;size:255;not null"`
	Number     string    `gorm:"column:number;size:20;not null"`
	Complement *string   `gorm:"column:complement;size:255"`
	Lat        float64   `gorm:"column:lat;type:decimal(10,7);not null"`
	Lng        float64   `gorm:"column:lng;type:decimal(10,7);not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (Contact) TableName() string { return "contacts" }

func (c *Contact) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
