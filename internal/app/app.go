package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	lpdf "github.com/ledongthuc/pdf"

	"bindery/internal/util"
	"bindery/pkg/auth"
	"bindery/pkg/domain"
	"bindery/pkg/events"
	"bindery/pkg/storage"
	"bindery/pkg/store"
	"bindery/pkg/watermark"
)

const (
	defaultMaxUploadBytes = 50 * 1024 * 1024
	defaultMaxCoverBytes  = 5 * 1024 * 1024
	defaultPresignExpiry  = 15 * time.Minute
)

// Deriver turns a source PDF and a watermark payload into a stamped copy.
type Deriver func(source []byte, text string) ([]byte, error)

// Config wires the core application.
type Config struct {
	Store          store.Store
	Objects        storage.ObjectStore
	Events         events.Publisher
	Deriver        Deriver // defaults to watermark.Stamp
	MaxUploadBytes int64
	MaxCoverBytes  int64
	PresignExpiry  time.Duration
}

// App implements the purchase-to-delivery pipeline: publication intake, the
// entitlement ledger, artifact derivation, and the delivery gate.
type App struct {
	store          store.Store
	objects        storage.ObjectStore
	events         events.Publisher
	derive         Deriver
	maxUploadBytes int64
	maxCoverBytes  int64
	presignExpiry  time.Duration
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Objects == nil {
		return nil, errors.New("object store is required")
	}
	publisher := cfg.Events
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	derive := cfg.Deriver
	if derive == nil {
		derive = watermark.Stamp
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	maxCover := cfg.MaxCoverBytes
	if maxCover <= 0 {
		maxCover = defaultMaxCoverBytes
	}
	presignExpiry := cfg.PresignExpiry
	if presignExpiry <= 0 {
		presignExpiry = defaultPresignExpiry
	}
	return &App{
		store:          cfg.Store,
		objects:        cfg.Objects,
		events:         publisher,
		derive:         derive,
		maxUploadBytes: maxUpload,
		maxCoverBytes:  maxCover,
		presignExpiry:  presignExpiry,
	}, nil
}

// SignUp registers a new account.
func (a *App) SignUp(ctx context.Context, email, password, displayName string, role domain.UserRole) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.User{}, ErrEmailAndPasswordRequired
	}
	if role != domain.RoleAuthor && role != domain.RoleReader {
		return domain.User{}, ErrInvalidRole
	}
	exists, err := a.store.HasUserEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, ErrEmailAlreadyExists
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(displayName),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and returns the account. The error message never
// reveals whether the email exists.
func (a *App) Login(ctx context.Context, email, password string) (domain.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return domain.User{}, ErrEmailAndPasswordRequired
	}
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// UserByID resolves an authenticated subject to its account.
func (a *App) UserByID(ctx context.Context, id string) (domain.User, bool, error) {
	return a.store.GetUserByID(ctx, id)
}

// PublishBook validates and stores a new book with its source PDF. The source
// document is immutable once published.
func (a *App) PublishBook(ctx context.Context, author domain.User, title, description string, priceCents int64, r io.Reader, size int64) (domain.Book, error) {
	if author.ID == "" {
		return domain.Book{}, domain.ErrUnauthenticated
	}
	if author.Role != domain.RoleAuthor {
		return domain.Book{}, domain.ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Book{}, ErrTitleRequired
	}
	if priceCents < 0 {
		return domain.Book{}, ErrInvalidPrice
	}
	if size > a.maxUploadBytes {
		return domain.Book{}, ErrFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(r, a.maxUploadBytes+1))
	if err != nil {
		return domain.Book{}, fmt.Errorf("%w: read upload: %v", domain.ErrStorage, err)
	}
	if int64(len(data)) > a.maxUploadBytes {
		return domain.Book{}, ErrFileTooLarge
	}
	pageCount, err := pdfPageCount(data)
	if err != nil {
		return domain.Book{}, err
	}

	id := util.NewID()
	sourceKey := domain.SourceStorageKey(id)
	now := time.Now().UTC()
	book := domain.Book{
		ID:          id,
		AuthorID:    author.ID,
		Title:       title,
		Description: strings.TrimSpace(description),
		PriceCents:  priceCents,
		SourceKey:   sourceKey,
		PageCount:   pageCount,
		SizeBytes:   int64(len(data)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.objects.Put(ctx, sourceKey, bytes.NewReader(data), int64(len(data)), "application/pdf"); err != nil {
		return domain.Book{}, fmt.Errorf("%w: save source: %v", domain.ErrStorage, err)
	}
	if err := a.store.SaveBook(ctx, book); err != nil {
		_ = a.objects.Delete(ctx, sourceKey)
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	slog.Info("book published", "book_id", book.ID, "author_id", author.ID, "pages", pageCount)
	return book, nil
}

// AttachCover stores or replaces a book's cover image.
func (a *App) AttachCover(ctx context.Context, author domain.User, bookID, contentType string, r io.Reader, size int64) (domain.Book, error) {
	if author.ID == "" {
		return domain.Book{}, domain.ErrUnauthenticated
	}
	book, ok, err := a.store.GetBook(ctx, bookID)
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	if !ok {
		return domain.Book{}, domain.ErrNotFound
	}
	if book.AuthorID != author.ID {
		return domain.Book{}, domain.ErrForbidden
	}
	if size > a.maxCoverBytes {
		return domain.Book{}, ErrFileTooLarge
	}
	ext, ok := coverExtension(contentType)
	if !ok {
		return domain.Book{}, ErrUnsupportedType
	}
	data, err := io.ReadAll(io.LimitReader(r, a.maxCoverBytes+1))
	if err != nil {
		return domain.Book{}, fmt.Errorf("%w: read cover: %v", domain.ErrStorage, err)
	}
	if int64(len(data)) > a.maxCoverBytes {
		return domain.Book{}, ErrFileTooLarge
	}
	coverKey := domain.CoverStorageKey(bookID, ext)
	if err := a.objects.Put(ctx, coverKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return domain.Book{}, fmt.Errorf("%w: save cover: %v", domain.ErrStorage, err)
	}
	book.CoverKey = coverKey
	book.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveBook(ctx, book); err != nil {
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	return book, nil
}

// GetBook retrieves a book by ID.
func (a *App) GetBook(ctx context.Context, id string) (domain.Book, bool, error) {
	return a.store.GetBook(ctx, id)
}

// ListBooks returns the whole catalog.
func (a *App) ListBooks(ctx context.Context) ([]domain.Book, error) {
	return a.store.ListBooks(ctx)
}

// ListBooksByAuthor returns one author's books.
func (a *App) ListBooksByAuthor(ctx context.Context, authorID string) ([]domain.Book, error) {
	return a.store.ListBooksByAuthor(ctx, authorID)
}

// CoverURL returns a short-lived URL for a book's cover, or "" when the book
// has no cover or the store cannot presign.
func (a *App) CoverURL(ctx context.Context, book domain.Book) string {
	if book.CoverKey == "" {
		return ""
	}
	url, err := a.objects.PresignGet(ctx, book.CoverKey, a.presignExpiry)
	if err != nil {
		return ""
	}
	return url
}

// Purchase records the entitlement and (re)derives the buyer's watermarked
// artifact. Repeat calls for the same pair are idempotent on the order row but
// still regenerate the artifact, so a retry after a failed derivation heals.
func (a *App) Purchase(ctx context.Context, buyer domain.User, bookID string) (domain.Order, error) {
	if buyer.ID == "" {
		return domain.Order{}, domain.ErrUnauthenticated
	}
	book, ok, err := a.store.GetBook(ctx, bookID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get book: %w", err)
	}
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}

	// Payment is simulated: every purchase settles immediately as paid.
	order := domain.Order{
		ID:      util.NewID(),
		BuyerID: buyer.ID,
		BookID:  book.ID,
		Status:  domain.OrderPaid,
		Receipt: domain.Receipt{
			BuyerEmail: buyer.Email,
			BookTitle:  book.Title,
			PriceCents: book.PriceCents,
		},
		CreatedAt: time.Now().UTC(),
	}
	order, created, err := a.store.CreateOrder(ctx, order)
	if err != nil {
		return domain.Order{}, fmt.Errorf("record order: %w", err)
	}

	// The artifact is regenerated on every purchase call. The order row above
	// is already durable: a derivation failure surfaces to the caller while
	// the entitlement stays, and the previous artifact (if any) is untouched
	// because the object store publishes atomically.
	if err := a.deriveAndStoreArtifact(ctx, buyer, book, order); err != nil {
		return domain.Order{}, err
	}

	if created {
		if err := a.events.PublishOrderPaid(ctx, order); err != nil {
			slog.Warn("order event publish failed", "order_id", order.ID, "err", err)
		}
	}
	slog.Info("purchase completed", "order_id", order.ID, "buyer_id", buyer.ID, "book_id", book.ID, "repeat", !created)
	return order, nil
}

func (a *App) deriveAndStoreArtifact(ctx context.Context, buyer domain.User, book domain.Book, order domain.Order) error {
	rc, _, err := a.objects.Get(ctx, book.SourceKey)
	if err != nil {
		return fmt.Errorf("%w: read source: %v", domain.ErrStorage, err)
	}
	source, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return fmt.Errorf("%w: read source: %v", domain.ErrStorage, err)
	}
	text := fmt.Sprintf("Purchased by %s | %s | Order %s", buyer.Email, book.Title, order.ID)
	derived, err := a.derive(source, text)
	if err != nil {
		return err
	}
	key := domain.ArtifactKey{BuyerID: buyer.ID, BookID: book.ID}
	if err := a.objects.Put(ctx, key.StorageKey(), bytes.NewReader(derived), int64(len(derived)), "application/pdf"); err != nil {
		return fmt.Errorf("%w: save artifact: %v", domain.ErrStorage, err)
	}
	return nil
}

// OwnsBook reports whether a paid order exists for the pair. Pure read, safe
// for unauthenticated callers (empty buyerID is simply false).
func (a *App) OwnsBook(ctx context.Context, buyerID, bookID string) (bool, error) {
	if buyerID == "" || bookID == "" {
		return false, nil
	}
	order, ok, err := a.store.GetOrder(ctx, buyerID, bookID)
	if err != nil {
		return false, fmt.Errorf("get order: %w", err)
	}
	return ok && order.Status == domain.OrderPaid, nil
}

// ArtifactHandle is what the delivery gate hands back: enough to stream the
// derived document without exposing storage paths or the original filename.
type ArtifactHandle struct {
	Content  io.ReadCloser
	Size     int64
	Filename string
}

// FetchArtifact authorizes and opens the requester's watermarked copy.
// Ownership is re-checked on every call and never inferred from the mere
// existence of a stored object.
func (a *App) FetchArtifact(ctx context.Context, requester domain.User, bookID string) (ArtifactHandle, error) {
	book, ok, err := a.store.GetBook(ctx, bookID)
	if err != nil {
		return ArtifactHandle{}, fmt.Errorf("get book: %w", err)
	}
	if !ok {
		return ArtifactHandle{}, domain.ErrNotFound
	}
	owns, err := a.OwnsBook(ctx, requester.ID, bookID)
	if err != nil {
		return ArtifactHandle{}, err
	}
	if !owns {
		return ArtifactHandle{}, domain.ErrForbidden
	}
	key := domain.ArtifactKey{BuyerID: requester.ID, BookID: bookID}
	rc, size, err := a.objects.Get(ctx, key.StorageKey())
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return ArtifactHandle{}, domain.ErrNotReady
		}
		return ArtifactHandle{}, fmt.Errorf("%w: open artifact: %v", domain.ErrStorage, err)
	}
	return ArtifactHandle{
		Content:  rc,
		Size:     size,
		Filename: downloadFilename(book.Title),
	}, nil
}

// ListOrders returns the requester's purchase history.
func (a *App) ListOrders(ctx context.Context, buyer domain.User) ([]domain.Order, error) {
	if buyer.ID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return a.store.ListOrdersByBuyer(ctx, buyer.ID)
}

func pdfPageCount(data []byte) (int, error) {
	reader, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCorruptSource, err)
	}
	n := reader.NumPage()
	if n < 1 {
		return 0, fmt.Errorf("%w: document has no pages", domain.ErrCorruptSource)
	}
	return n, nil
}

// downloadFilename derives a stable suggested filename from the book title.
// Never the original upload filename, never a storage path.
func downloadFilename(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	lastDash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "book"
	}
	return name + ".pdf"
}

func coverExtension(contentType string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg":
		return ".jpg", true
	case "image/png":
		return ".png", true
	default:
		return "", false
	}
}
