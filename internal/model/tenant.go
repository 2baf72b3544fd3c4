package model

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is one salon/business account — the unit of data isolation.
// No invariant ever spans two tenants.
type Tenant struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name    string    `gorm:"uniqueIndex;not null"`
	TaxID   string    `gorm:"type:varchar(20);not null"`
	Address *string
	Currency  string `gorm:"type:varchar(3);not null;default:'EUR'"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
