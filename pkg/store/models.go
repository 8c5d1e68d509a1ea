package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	DisplayName  string `gorm:"not null"`
	Role         string `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type BookModel struct {
	ID          string `gorm:"primaryKey"`
	AuthorID    string `gorm:"not null;index"`
	Title       string `gorm:"not null"`
	Description string
	PriceCents  int64  `gorm:"not null"`
	SourceKey   string `gorm:"not null"`
	CoverKey    string
	PageCount   int       `gorm:"not null"`
	SizeBytes   int64     `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// OrderModel carries a composite unique index on (buyer_id, book_id): the
// entitlement invariant lives in the database, not in application locking.
type OrderModel struct {
	ID        string         `gorm:"primaryKey"`
	BuyerID   string         `gorm:"not null;uniqueIndex:idx_orders_buyer_book"`
	BookID    string         `gorm:"not null;uniqueIndex:idx_orders_buyer_book"`
	Status    string         `gorm:"not null"`
	Receipt   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null;index"`
}
