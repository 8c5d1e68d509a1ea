package store

import (
	"context"
	"strings"
	"sync"

	"bindery/pkg/domain"
)

// MemoryStore keeps everything in-process. It mirrors the GormStore semantics,
// including the single-order-per-(buyer, book) invariant, and backs the app and
// server tests.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User // key: user ID
	email     map[string]string      // lowercase email -> user ID
	books     map[string]domain.Book
	bookOrder []string // insertion order of book IDs
	orders    map[[2]string]domain.Order // key: {buyerID, bookID}
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]domain.User),
		email:  make(map[string]string),
		books:  make(map[string]domain.Book),
		orders: make(map[[2]string]domain.Order),
	}
}

func (m *MemoryStore) SaveUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.users[u.ID]; ok {
		delete(m.email, strings.ToLower(old.Email))
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) HasUserEmail(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[strings.ToLower(strings.TrimSpace(email))]
	return ok, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) SaveBook(_ context.Context, b domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.books[b.ID]; !exists {
		m.bookOrder = append(m.bookOrder, b.ID)
	}
	m.books[b.ID] = b
	return nil
}

func (m *MemoryStore) GetBook(_ context.Context, id string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	return b, ok, nil
}

func (m *MemoryStore) ListBooks(_ context.Context) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Book, 0, len(m.bookOrder))
	for _, id := range m.bookOrder {
		if b, ok := m.books[id]; ok {
			res = append(res, b)
		}
	}
	return res, nil
}

func (m *MemoryStore) ListBooksByAuthor(_ context.Context, authorID string) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Book, 0)
	for _, id := range m.bookOrder {
		if b, ok := m.books[id]; ok && b.AuthorID == authorID {
			res = append(res, b)
		}
	}
	return res, nil
}

// CreateOrder inserts unless a row already exists for the pair, matching the
// DoNothing-on-conflict behavior of the SQL store.
func (m *MemoryStore) CreateOrder(_ context.Context, o domain.Order) (domain.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{o.BuyerID, o.BookID}
	if existing, ok := m.orders[key]; ok {
		return existing, false, nil
	}
	m.orders[key] = o
	return o, true, nil
}

func (m *MemoryStore) GetOrder(_ context.Context, buyerID, bookID string) (domain.Order, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[[2]string{buyerID, bookID}]
	return o, ok, nil
}

func (m *MemoryStore) ListOrdersByBuyer(_ context.Context, buyerID string) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Order, 0)
	for key, o := range m.orders {
		if key[0] == buyerID {
			res = append(res, o)
		}
	}
	return res, nil
}
