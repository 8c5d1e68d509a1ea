package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"bindery/pkg/domain"
)

const migrateLockID int64 = 52415241

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock so
// concurrent replicas don't race each other.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&UserModel{}, &BookModel{}, &OrderModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(ctx context.Context, u domain.User) error {
	model := userToModel(u)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "display_name", "role", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists. Emails are stored lowercase.
func (s *GormStore) HasUserEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&UserModel{}).
		Where("email = ?", normalizeEmail(email)).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email, case-insensitively.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// SaveBook stores or updates a book.
func (s *GormStore) SaveBook(ctx context.Context, b domain.Book) error {
	model := bookToModel(b)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "price_cents", "cover_key", "page_count", "size_bytes", "updated_at"}),
	}).Create(&model).Error
}

// GetBook retrieves a book.
func (s *GormStore) GetBook(ctx context.Context, id string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ListBooks returns all books ordered by created_at.
func (s *GormStore) ListBooks(ctx context.Context) ([]domain.Book, error) {
	return s.listBooks(ctx)
}

// ListBooksByAuthor returns books filtered by author.
func (s *GormStore) ListBooksByAuthor(ctx context.Context, authorID string) ([]domain.Book, error) {
	return s.listBooks(ctx, "author_id = ?", authorID)
}

func (s *GormStore) listBooks(ctx context.Context, conds ...any) ([]domain.Book, error) {
	var models []BookModel
	tx := s.db.WithContext(ctx).Order("created_at ASC")
	if len(conds) > 0 {
		tx = tx.Where(conds[0], conds[1:]...)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// CreateOrder inserts the order, falling back to the existing row when the
// (buyer, book) unique index already holds one. DoNothing means the insert is
// a no-op on conflict; RowsAffected tells us which case we hit.
func (s *GormStore) CreateOrder(ctx context.Context, o domain.Order) (domain.Order, bool, error) {
	model := orderToModel(o)
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "buyer_id"}, {Name: "book_id"}},
		DoNothing: true,
	}).Create(&model)
	if res.Error != nil {
		return domain.Order{}, false, res.Error
	}
	if res.RowsAffected > 0 {
		return orderFromModel(model), true, nil
	}
	existing, ok, err := s.GetOrder(ctx, o.BuyerID, o.BookID)
	if err != nil {
		return domain.Order{}, false, err
	}
	if !ok {
		return domain.Order{}, false, fmt.Errorf("order conflict but no existing row for buyer %s book %s", o.BuyerID, o.BookID)
	}
	return existing, false, nil
}

// GetOrder returns the order for a (buyer, book) pair.
func (s *GormStore) GetOrder(ctx context.Context, buyerID, bookID string) (domain.Order, bool, error) {
	var model OrderModel
	if err := s.db.WithContext(ctx).
		Where("buyer_id = ? AND book_id = ?", buyerID, bookID).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Order{}, false, nil
		}
		return domain.Order{}, false, err
	}
	return orderFromModel(model), true, nil
}

// ListOrdersByBuyer returns a buyer's orders, oldest first.
func (s *GormStore) ListOrdersByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	var models []OrderModel
	if err := s.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(models))
	for _, m := range models {
		orders = append(orders, orderFromModel(m))
	}
	return orders, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        normalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		DisplayName:  u.DisplayName,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		DisplayName:  m.DisplayName,
		Role:         domain.UserRole(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ID:          b.ID,
		AuthorID:    b.AuthorID,
		Title:       b.Title,
		Description: b.Description,
		PriceCents:  b.PriceCents,
		SourceKey:   b.SourceKey,
		CoverKey:    b.CoverKey,
		PageCount:   b.PageCount,
		SizeBytes:   b.SizeBytes,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:          m.ID,
		AuthorID:    m.AuthorID,
		Title:       m.Title,
		Description: m.Description,
		PriceCents:  m.PriceCents,
		SourceKey:   m.SourceKey,
		CoverKey:    m.CoverKey,
		PageCount:   m.PageCount,
		SizeBytes:   m.SizeBytes,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func orderToModel(o domain.Order) OrderModel {
	receipt, _ := json.Marshal(o.Receipt)
	return OrderModel{
		ID:        o.ID,
		BuyerID:   o.BuyerID,
		BookID:    o.BookID,
		Status:    string(o.Status),
		Receipt:   receipt,
		CreatedAt: o.CreatedAt,
	}
}

func orderFromModel(m OrderModel) domain.Order {
	var receipt domain.Receipt
	if len(m.Receipt) > 0 {
		_ = json.Unmarshal(m.Receipt, &receipt)
	}
	return domain.Order{
		ID:        m.ID,
		BuyerID:   m.BuyerID,
		BookID:    m.BookID,
		Status:    domain.OrderStatus(m.Status),
		Receipt:   receipt,
		CreatedAt: m.CreatedAt,
	}
}
