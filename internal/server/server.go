package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bindery/internal/app"
	"bindery/internal/ratelimit"
	"bindery/internal/util"
	"bindery/pkg/auth"
	"bindery/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                      *app.App
	Tokens                   *auth.TokenIssuer
	RedisAddr                string
	RedisPassword            string
	SignupRateLimitPerMinute int
	LoginRateLimitPerMinute  int
	MaxUploadBytes           int64
	TrustedProxies           *util.TrustedProxies
}

// Server exposes the HTTP API.
type Server struct {
	app            *app.App
	tokens         *auth.TokenIssuer
	mux            *http.ServeMux
	maxUploadBytes int64
	signupLimiter  *ratelimit.FixedWindowLimiter
	loginLimiter   *ratelimit.FixedWindowLimiter
	trustedProxies *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	signupLimit := cfg.SignupRateLimitPerMinute
	if signupLimit <= 0 {
		signupLimit = 5
	}
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = 10
	}
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		prefix := "bindery:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	signupLimiter, err := newLimiter("signup", signupLimit)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := newLimiter("login", loginLimit)
	if err != nil {
		return nil, err
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 50 * 1024 * 1024
	}
	s := &Server{
		app:            cfg.App,
		tokens:         cfg.Tokens,
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUpload,
		signupLimiter:  signupLimiter,
		loginLimiter:   loginLimiter,
		trustedProxies: cfg.TrustedProxies,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog("bindery", s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))
	s.mux.Handle("/api/orders", s.authenticated(s.handleOrders))

	// Catalog browsing works without a session; purchase and delivery are
	// attached under /api/books/{id}/... and require one.
	s.mux.HandleFunc("/api/books", s.handleBooks)
	s.mux.HandleFunc("/api/books/", s.handleBookByID)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

// authorize resolves the bearer token to a user. The zero user means no (or
// invalid) identity; identity is always passed explicitly into the core,
// never read from ambient state.
func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return domain.User{}, false
	}
	subject, err := s.tokens.VerifySubject(token)
	if err != nil {
		return domain.User{}, false
	}
	user, found, err := s.app.UserByID(r.Context(), subject)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// optionalIdentity returns the caller's user when a valid token is present
// and the zero user otherwise.
func (s *Server) optionalIdentity(r *http.Request) domain.User {
	user, _ := s.authorize(r)
	return user
}

// auth handlers
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.signupLimiter, "too many signup attempts") {
		return
	}
	var req signupRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.app.SignUp(r.Context(), req.Email, req.Password, req.DisplayName, domain.UserRole(strings.ToLower(strings.TrimSpace(req.Role))))
	if err != nil {
		writeAppError(w, err)
		return
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.app.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	orders, err := s.app.ListOrders(r.Context(), user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": orders, "count": len(orders)})
}

// /api/books
func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListBooks(w, r)
	case http.MethodPost:
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.handlePublishBook(w, r, user)
	default:
		methodNotAllowed(w)
	}
}

// /api/books/{id} plus /cover, /purchase, /download subresources.
func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/books/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleBookDetail(w, r, id)
		return
	}
	switch parts[1] {
	case "cover":
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleAttachCover(w, r, user, id)
	case "purchase":
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handlePurchase(w, r, user, id)
	case "download":
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleDownload(w, r, user, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	var (
		books []domain.Book
		err   error
	)
	if r.URL.Query().Get("mine") == "1" {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		books, err = s.app.ListBooksByAuthor(r.Context(), user.ID)
	} else {
		books, err = s.app.ListBooks(r.Context())
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	items := make([]bookResponse, 0, len(books))
	for _, b := range books {
		items = append(items, bookResponse{Book: b, CoverURL: s.app.CoverURL(r.Context(), b)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *Server) handleBookDetail(w http.ResponseWriter, r *http.Request, id string) {
	book, found, err := s.app.GetBook(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}
	caller := s.optionalIdentity(r)
	owned, err := s.app.OwnsBook(r.Context(), caller.ID, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookResponse{
		Book:     book,
		CoverURL: s.app.CoverURL(r.Context(), book),
		Owned:    owned,
	})
}

func (s *Server) handlePublishBook(w http.ResponseWriter, r *http.Request, user domain.User) {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+(1<<20))
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()
	title := r.FormValue("title")
	description := r.FormValue("description")
	priceCents := int64(0)
	if raw := strings.TrimSpace(r.FormValue("priceCents")); raw != "" {
		priceCents, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "priceCents must be an integer")
			return
		}
	}
	book, err := s.app.PublishBook(r.Context(), user, title, description, priceCents, file, header.Size)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookResponse{Book: book})
}

func (s *Server) handleAttachCover(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	r.Body = http.MaxBytesReader(w, r.Body, 8<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()
	contentType := header.Header.Get("Content-Type")
	book, err := s.app.AttachCover(r.Context(), user, id, contentType, file, header.Size)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookResponse{Book: book, CoverURL: s.app.CoverURL(r.Context(), book)})
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	order, err := s.app.Purchase(r.Context(), user, id)
	if err != nil {
		// Derivation and storage failures share one user-visible outcome;
		// the order (if recorded) stays so a retry does not double-charge.
		if errors.Is(err, domain.ErrCorruptSource) || errors.Is(err, domain.ErrEncoding) || errors.Is(err, domain.ErrStorage) {
			slog.Error("purchase pipeline failed", "book_id", id, "buyer_id", user.ID, "err", err)
			writeError(w, http.StatusInternalServerError, "purchase could not be completed, please retry")
			return
		}
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, user domain.User, id string) {
	handle, err := s.app.FetchArtifact(r.Context(), user, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	defer handle.Content.Close()
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", handle.Filename))
	if handle.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(handle.Size, 10))
	}
	if _, err := io.Copy(w, handle.Content); err != nil {
		slog.Warn("artifact stream interrupted", "book_id", id, "buyer_id", user.ID, "err", err)
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type bookResponse struct {
	domain.Book
	CoverURL string `json:"coverUrl,omitempty"`
	Owned    bool   `json:"owned"`
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps domain and app errors onto HTTP statuses. NotReady is
// deliberately distinct from Forbidden: the client should offer "retry", not
// "buy".
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "you do not own this book")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrNotReady):
		writeError(w, http.StatusConflict, "your copy is not ready yet, retry shortly")
	case errors.Is(err, domain.ErrCorruptSource):
		writeError(w, http.StatusUnprocessableEntity, "source document is not a valid PDF")
	case errors.Is(err, domain.ErrEncoding):
		writeError(w, http.StatusUnprocessableEntity, "watermark text cannot be encoded")
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, app.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, app.ErrEmailAndPasswordRequired),
		errors.Is(err, app.ErrInvalidRole),
		errors.Is(err, app.ErrTitleRequired),
		errors.Is(err, app.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("internal error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}
