package store

import (
	"context"

	"bindery/pkg/domain"
)

// Store defines persistence operations for users, books, and orders.
type Store interface {
	// users
	SaveUser(ctx context.Context, u domain.User) error
	HasUserEmail(ctx context.Context, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	GetUserByID(ctx context.Context, id string) (domain.User, bool, error)

	// books
	SaveBook(ctx context.Context, b domain.Book) error
	GetBook(ctx context.Context, id string) (domain.Book, bool, error)
	ListBooks(ctx context.Context) ([]domain.Book, error)
	ListBooksByAuthor(ctx context.Context, authorID string) ([]domain.Book, error)

	// orders
	// CreateOrder inserts the order unless one already exists for the same
	// (buyer, book) pair; in that case the existing row is returned and
	// created is false. The unique index is the enforcement point, so two
	// concurrent calls can never both insert.
	CreateOrder(ctx context.Context, o domain.Order) (order domain.Order, created bool, err error)
	GetOrder(ctx context.Context, buyerID, bookID string) (domain.Order, bool, error)
	ListOrdersByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error)
}
