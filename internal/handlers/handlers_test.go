package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gamestore-dxp/apiserver/internal/services"
	"github.com/gamestore-dxp/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validToken = "good-token"

var signedIn = types.Account{ID: "acct-1", Email: "player@example.com", CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

type stubAccounts struct {
	registerErr error
	registered  services.RegisterInput
}

func (s *stubAccounts) Register(_ context.Context, in services.RegisterInput) (types.Account, string, error) {
	s.registered = in
	if s.registerErr != nil {
		return types.Account{}, "", s.registerErr
	}
	return types.Account{ID: "acct-new", Email: strings.ToLower(in.Email), Birthdate: in.Birthdate}, "issued", nil
}

func (s *stubAccounts) Authenticate(_ context.Context, email, password string) (types.Account, string, error) {
	if email == signedIn.Email && password == "secret1" {
		return signedIn, "issued", nil
	}
	return types.Account{}, "", services.ErrInvalidCredentials
}

func (s *stubAccounts) ResolveSession(_ context.Context, token string) (types.Account, error) {
	if token == validToken {
		return signedIn, nil
	}
	return types.Account{}, services.ErrInvalidSession
}

type stubLists struct {
	wishlist []string
}

func (s *stubLists) RecordView(_ context.Context, _, gameSlug, coverImage string) (types.Account, error) {
	account := signedIn
	account.RecordView(gameSlug, coverImage, time.Now())
	return account, nil
}

func (s *stubLists) AddToWishlist(_ context.Context, _, entryUID string) (types.Account, error) {
	s.wishlist = append(s.wishlist, entryUID)
	account := signedIn
	account.AddToWishlist(entryUID, time.Now())
	return account, nil
}

func (s *stubLists) RemoveFromWishlist(context.Context, string, string) (types.Account, error) {
	return signedIn, nil
}

func (s *stubLists) ListWishlist(context.Context, string) ([]string, error) {
	return s.wishlist, nil
}

func (s *stubLists) AddToDownloads(context.Context, string, string) (types.Account, error) {
	return signedIn, nil
}

func (s *stubLists) RemoveFromDownloads(context.Context, string, string) (types.Account, error) {
	return signedIn, nil
}

func (s *stubLists) ListDownloads(context.Context, string) ([]string, error) {
	return nil, errors.New("database is down")
}

type stubReviews struct {
	calls int
	err   error
	own   *types.Review
}

func (s *stubReviews) Create(_ context.Context, entryUID string, author types.Account, in services.ReviewInput) (types.Review, error) {
	s.calls++
	if s.err != nil {
		return types.Review{}, s.err
	}
	return types.Review{ID: "rev-1", EntryUID: entryUID, UserID: author.ID, UserEmail: author.Email, Rating: in.Rating, Title: in.Title, Content: in.Content}, nil
}

func (s *stubReviews) ListByGame(_ context.Context, entryUID string) (types.ReviewList, error) {
	s.calls++
	return types.ReviewList{Reviews: []types.Review{}, Total: 0, AverageRating: 0}, nil
}

func (s *stubReviews) GetOwn(context.Context, string, string) (*types.Review, error) {
	s.calls++
	return s.own, nil
}

func (s *stubReviews) Update(_ context.Context, reviewID, _ string, in services.ReviewInput) (types.Review, error) {
	s.calls++
	if s.err != nil {
		return types.Review{}, s.err
	}
	return types.Review{ID: reviewID, Rating: in.Rating}, nil
}

func (s *stubReviews) Delete(context.Context, string, string) error {
	s.calls++
	return s.err
}

type fixture struct {
	router   chi.Router
	accounts *stubAccounts
	lists    *stubLists
	reviews  *stubReviews
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	f := &fixture{accounts: &stubAccounts{}, lists: &stubLists{}, reviews: &stubReviews{}}

	authHandler := NewAuthHandler(f.accounts, f.lists, logger)
	authHandler.now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }
	reviewHandler := NewReviewHandler(f.reviews, logger)

	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) { AuthRouter(r, authHandler, nil) })
	r.Route("/reviews", func(r chi.Router) { ReviewRouter(r, reviewHandler, authHandler.RequireAuth) })
	f.router = r
	return f
}

func (f *fixture) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegisterReturnsCreatedWithToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/register", `{"email":"new@example.com","password":"secret1","birthdate":"2000-06-01"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "issued", body["accessToken"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "new@example.com", user["email"])
	assert.EqualValues(t, 26, user["age"])
	assert.NotContains(t, user, "password")
}

func TestRegisterValidationFailsBeforeService(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/register", `{"email":"not-an-email","password":"123"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[ErrorResponse](t, rec)
	assert.Len(t, body.Fields, 2)
	assert.Empty(t, f.accounts.registered.Email)
}

func TestRegisterConflict(t *testing.T) {
	f := newFixture(t)
	f.accounts.registerErr = services.ErrEmailTaken

	rec := f.do(http.MethodPost, "/auth/register", `{"email":"dup@example.com","password":"secret1"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, services.ErrEmailTaken.Message, decode[ErrorResponse](t, rec).Error)
}

func TestRegisterRejectsMalformedJSON(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/register", `{"email":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/login", `{"email":"player@example.com","password":"secret1"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/auth/login", `{"email":"player@example.com","password":"wrong12"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decode[ErrorResponse](t, rec).Error)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/auth/profile", "/auth/verify", "/auth/wishlist"} {
		assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, path, "", "").Code, path)
		assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, path, "", "forged").Code, path)
	}
}

func TestVerifyAndProfile(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/auth/verify", "", validToken)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["valid"])

	rec = f.do(http.MethodGet, "/auth/profile", "", validToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, signedIn.ID, decode[types.AccountView](t, rec).ID)
}

func TestRecentlyViewed(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPatch, "/auth/recently-viewed", `{"gameSlug":"hades","coverImage":"https://img/h.png"}`, validToken)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[types.AccountView](t, rec)
	require.Len(t, view.RecentlyViewed, 1)
	assert.Equal(t, "hades", view.RecentlyViewed[0].Slug)

	rec = f.do(http.MethodPatch, "/auth/recently-viewed", `{"gameSlug":"  "}`, validToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWishlistRoutes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/auth/wishlist/game-9", "", validToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"game-9"}, decode[types.AccountView](t, rec).Wishlist)

	rec = f.do(http.MethodGet, "/auth/wishlist", "", validToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"game-9"}, decode[WishlistResponse](t, rec).Wishlist)
}

func TestUnexpectedErrorsBecomeInternalServerError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	f := newFixture(t)
	authHandler := NewAuthHandler(f.accounts, f.lists, logger)
	r := chi.NewRouter()
	r.Route("/auth", func(r chi.Router) { AuthRouter(r, authHandler, nil) })
	f.router = r

	rec := f.do(http.MethodGet, "/auth/downloads", "", validToken)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode[ErrorResponse](t, rec).Error)
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Data["error"].(error).Error(), "database is down")
}

func TestListReviewsIsPublic(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/reviews/game-1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.EqualValues(t, 0, body["total"])
	assert.EqualValues(t, 0, body["averageRating"])
	assert.Equal(t, []any{}, body["reviews"])
}

func TestCreateReview(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/reviews/game-1", `{"rating":4,"title":"Fun","content":"Good"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/reviews/game-1", `{"rating":4,"title":"Fun","content":"Good"}`, validToken)
	require.Equal(t, http.StatusCreated, rec.Code)
	review := decode[types.Review](t, rec)
	assert.Equal(t, "game-1", review.EntryUID)
	assert.Equal(t, signedIn.Email, review.UserEmail)

	f.reviews.err = services.ErrAlreadyReviewed
	rec = f.do(http.MethodPost, "/reviews/game-1", `{"rating":4,"title":"Fun","content":"Good"}`, validToken)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateReviewRejectsInvalidRatingWithoutCallingService(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/reviews/game-1", `{"rating":9,"title":"Fun","content":"Good"}`, validToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "rating", decode[ErrorResponse](t, rec).Fields[0].Field)
	assert.Zero(t, f.reviews.calls)
}

func TestMyReviewReturnsNullWhenAbsent(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/reviews/game-1/my-review", "", validToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestUpdateAndDeleteReviewErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "missing", err: services.ErrReviewNotFound, status: http.StatusNotFound},
		{name: "not owner", err: services.ErrNotReviewOwner, status: http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.reviews.err = tc.err

			rec := f.do(http.MethodPut, "/reviews/rev-1", `{"rating":3,"title":"t","content":"c"}`, validToken)
			assert.Equal(t, tc.status, rec.Code)

			rec = f.do(http.MethodDelete, "/reviews/rev-1", "", validToken)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestDeleteReviewNoContent(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodDelete, "/reviews/rev-1", "", validToken)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
