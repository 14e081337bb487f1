package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gamestore-dxp/apiserver/internal/auth"
	"github.com/gamestore-dxp/apiserver/internal/services"
	"github.com/gamestore-dxp/apiserver/internal/validation"
	"github.com/gamestore-dxp/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// AccountService is the account behaviour the auth endpoints need.
type AccountService interface {
	Register(ctx context.Context, in services.RegisterInput) (types.Account, string, error)
	Authenticate(ctx context.Context, email, password string) (types.Account, string, error)
	ResolveSession(ctx context.Context, token string) (types.Account, error)
}

// ListService is the personal list behaviour the auth endpoints need.
type ListService interface {
	RecordView(ctx context.Context, accountID, gameSlug, coverImage string) (types.Account, error)
	AddToWishlist(ctx context.Context, accountID, entryUID string) (types.Account, error)
	RemoveFromWishlist(ctx context.Context, accountID, entryUID string) (types.Account, error)
	ListWishlist(ctx context.Context, accountID string) ([]string, error)
	AddToDownloads(ctx context.Context, accountID, entryUID string) (types.Account, error)
	RemoveFromDownloads(ctx context.Context, accountID, entryUID string) (types.Account, error)
	ListDownloads(ctx context.Context, accountID string) ([]string, error)
}

// AuthHandler serves registration, login and the signed-in account's lists.
type AuthHandler struct {
	accounts AccountService
	lists    ListService
	logger   logrus.FieldLogger
	now      func() time.Time
}

func NewAuthHandler(accounts AccountService, lists ListService, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		lists:    lists,
		logger:   logger,
		now:      time.Now,
	}
}

// AuthRouter registers auth routes on the given router. limiter, when set,
// wraps the credential endpoints.
func AuthRouter(r chi.Router, handler *AuthHandler, limiter func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if limiter != nil {
			r.Use(limiter)
		}
		r.Post("/register", handler.Register)
		r.Post("/login", handler.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireAuth)
		r.Get("/profile", handler.Profile)
		r.Get("/verify", handler.Verify)
		r.Patch("/recently-viewed", handler.RecordView)

		r.Get("/wishlist", handler.ListWishlist)
		r.Post("/wishlist/{entryUid}", handler.AddToWishlist)
		r.Delete("/wishlist/{entryUid}", handler.RemoveFromWishlist)

		r.Get("/downloads", handler.ListDownloads)
		r.Post("/downloads/{entryUid}", handler.AddToDownloads)
		r.Delete("/downloads/{entryUid}", handler.RemoveFromDownloads)
	})
}

// RequireAuth resolves the bearer token into an account stored in the
// request context. Requests without a valid session get 401.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		account, err := h.accounts.ResolveSession(r.Context(), token)
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withAccount(r.Context(), account)))
	})
}

// Register creates a new account and returns it with an access token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	birthdate, err := validation.ValidateRegister(req.Email, req.Password, req.Birthdate, h.now())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	account, token, err := h.accounts.Register(r.Context(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Birthdate: birthdate,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{User: account.View(h.now()), AccessToken: token})
}

// Login verifies credentials and returns the account with an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := validation.ValidateLogin(req.Email, req.Password); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	account, token, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{User: account.View(h.now()), AccessToken: token})
}

// Profile returns the signed-in account.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, account.View(h.now()))
}

// Verify confirms the bearer token is valid.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{Valid: true, User: account.View(h.now())})
}

// RecordView adds a game to the recently viewed list.
func (h *AuthHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}

	var req RecentlyViewedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateRecentlyViewed(req.GameSlug); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	updated, err := h.lists.RecordView(r.Context(), account.ID, req.GameSlug, req.CoverImage)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.View(h.now()))
}

func (h *AuthHandler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	uids, err := h.lists.ListWishlist(r.Context(), account.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, WishlistResponse{Wishlist: uids})
}

func (h *AuthHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	h.mutateList(w, r, h.lists.AddToWishlist)
}

func (h *AuthHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	h.mutateList(w, r, h.lists.RemoveFromWishlist)
}

func (h *AuthHandler) ListDownloads(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}
	uids, err := h.lists.ListDownloads(r.Context(), account.ID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DownloadsResponse{Downloads: uids})
}

func (h *AuthHandler) AddToDownloads(w http.ResponseWriter, r *http.Request) {
	h.mutateList(w, r, h.lists.AddToDownloads)
}

func (h *AuthHandler) RemoveFromDownloads(w http.ResponseWriter, r *http.Request) {
	h.mutateList(w, r, h.lists.RemoveFromDownloads)
}

type listMutation func(ctx context.Context, accountID, entryUID string) (types.Account, error)

func (h *AuthHandler) mutateList(w http.ResponseWriter, r *http.Request, mutate listMutation) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}

	entryUID := pathParam(r, "entryUid")
	if err := validation.ValidateEntryUID(entryUID); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	updated, err := mutate(r.Context(), account.ID, entryUID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.View(h.now()))
}

func (h *AuthHandler) currentAccount(w http.ResponseWriter, r *http.Request) (types.Account, bool) {
	account, ok := accountFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return account, ok
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Birthdate string `json:"birthdate,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RecentlyViewedRequest struct {
	GameSlug   string `json:"gameSlug"`
	CoverImage string `json:"coverImage,omitempty"`
}

type AuthResponse struct {
	User        types.AccountView `json:"user"`
	AccessToken string            `json:"accessToken"`
}

type VerifyResponse struct {
	Valid bool              `json:"valid"`
	User  types.AccountView `json:"user"`
}

type WishlistResponse struct {
	Wishlist []string `json:"wishlist"`
}

type DownloadsResponse struct {
	Downloads []string `json:"downloads"`
}
