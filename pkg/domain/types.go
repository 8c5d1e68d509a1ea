package domain

import (
	"path"
	"time"
)

type UserRole string

const (
	RoleAuthor UserRole = "author"
	RoleReader UserRole = "reader"
)

type OrderStatus string

const (
	// OrderPaid is the only order state in scope: payment is simulated and
	// always succeeds, so there is no pending/failed/refunded lifecycle.
	OrderPaid OrderStatus = "paid"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"displayName"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Book struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"authorId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"priceCents"`
	SourceKey   string    `json:"-"`
	CoverKey    string    `json:"-"`
	PageCount   int       `json:"pageCount"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Order is the entitlement record: at most one row exists per (buyer, book)
// pair, enforced by the store's unique index. It is not a financial ledger.
type Order struct {
	ID        string      `json:"id"`
	BuyerID   string      `json:"buyerId"`
	BookID    string      `json:"bookId"`
	Status    OrderStatus `json:"status"`
	Receipt   Receipt     `json:"receipt"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Receipt snapshots what the buyer saw at purchase time.
type Receipt struct {
	BuyerEmail string `json:"buyerEmail"`
	BookTitle  string `json:"bookTitle"`
	PriceCents int64  `json:"priceCents"`
}

// ArtifactKey addresses one derived, watermarked copy. Storage addressing and
// the ownership check both key off the same typed pair, never off concatenated
// request input.
type ArtifactKey struct {
	BuyerID string
	BookID  string
}

// StorageKey returns the deterministic object key for the derived PDF.
func (k ArtifactKey) StorageKey() string {
	return path.Join("artifacts", k.BookID, k.BuyerID+".pdf")
}

// SourceStorageKey returns the object key holding a book's original PDF.
func SourceStorageKey(bookID string) string {
	return path.Join("books", bookID, "source.pdf")
}

// CoverStorageKey returns the object key for a book's cover image.
func CoverStorageKey(bookID, ext string) string {
	return path.Join("books", bookID, "cover"+ext)
}
