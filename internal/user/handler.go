// Package user serves account registration, authentication and the
// public seller profile.
package user

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ayush/autos-marketplace/backend/internal/auth"
	"github.com/ayush/autos-marketplace/backend/internal/middleware"
	"github.com/ayush/autos-marketplace/backend/internal/models"
	"github.com/ayush/autos-marketplace/backend/internal/respond"
	"github.com/ayush/autos-marketplace/backend/internal/store"
	"github.com/ayush/autos-marketplace/backend/internal/validation"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	Insert(ctx context.Context, u *models.User) (string, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateByID(ctx context.Context, id string, set bson.M) (*models.User, error)
	DeleteByID(ctx context.Context, id string) error
}

// ListingStore is the part of listing persistence an account deletion
// cascades into.
type ListingStore interface {
	FindByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Listing, error)
	DeleteByOwner(ctx context.Context, owner primitive.ObjectID) (int64, error)
}

// PhotoRemover clears the photo prefix of a deleted listing.
type PhotoRemover interface {
	RemoveListing(ctx context.Context, listingID string) error
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
	ExpiresAt(token string) (time.Time, error)
}

type Revoker interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
}

// Handler holds user-related HTTP handlers.
type Handler struct {
	users    UserStore
	listings ListingStore
	photos   PhotoRemover
	tokens   TokenIssuer
	revoked  Revoker
	logger   *zap.Logger

	// selfOnly restricts updates and deletions to the token's own account.
	selfOnly bool
	now      func() time.Time
}

func NewHandler(users UserStore, listings ListingStore, photos PhotoRemover, tokens TokenIssuer, revoked Revoker, logger *zap.Logger, selfOnly bool) *Handler {
	return &Handler{
		users:    users,
		listings: listings,
		photos:   photos,
		tokens:   tokens,
		revoked:  revoked,
		logger:   logger,
		selfOnly: selfOnly,
		now:      time.Now,
	}
}

// Mount registers the user routes; requireToken guards account changes.
func (h *Handler) Mount(r chi.Router, requireToken func(http.Handler) http.Handler) {
	r.Post("/users/register", h.Register)
	r.Post("/users/auth", h.Auth)
	r.With(requireToken).Post("/users/logout", h.Logout)
	r.Get("/users/{id}", h.Get)
	r.With(requireToken).Patch("/users/{id}", h.Update)
	r.With(requireToken).Delete("/users/{id}", h.Delete)
}

// Register creates a new account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	email := models.NormalizeEmail(req.Email)
	_, err := h.users.FindByEmail(r.Context(), email)
	switch {
	case err == nil:
		respond.Error(w, http.StatusBadRequest, "Email already registered")
		return
	case !errors.Is(err, store.ErrNotFound):
		h.logger.Error("lookup email", zap.Error(err))
		respond.Upstream(w, err)
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	id, err := h.users.Insert(r.Context(), req.User(hashed, h.now()))
	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		// lost a race with a concurrent registration
		respond.Error(w, http.StatusBadRequest, "Email already registered")
		return
	case err != nil:
		h.logger.Error("insert user", zap.Error(err))
		respond.Upstream(w, err)
		return
	}

	respond.JSON(w, http.StatusCreated, map[string]string{"user": id})
}

// Auth checks credentials and issues a token.
func (h *Handler) Auth(w http.ResponseWriter, r *http.Request) {
	var req models.AuthRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	u, err := h.users.FindByEmail(r.Context(), req.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respond.Error(w, http.StatusBadRequest, "Invalid email or password")
		return
	case err != nil:
		h.logger.Error("lookup email", zap.Error(err))
		respond.Upstream(w, err)
		return
	}
	if !auth.VerifyPassword(req.Password, u.Password) {
		respond.Error(w, http.StatusBadRequest, "Invalid email or password")
		return
	}

	token, err := h.tokens.Issue(u.ID.Hex())
	if err != nil {
		h.logger.Error("issue token", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set(auth.TokenHeader, token)
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"user":  u,
		"token": token,
	})
}

// Logout revokes the token the request was made with.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.Token(r.Context())
	expiresAt, err := h.tokens.ExpiresAt(token)
	if err != nil {
		respond.Unauthorized(w)
		return
	}
	if err := h.revoked.Revoke(r.Context(), token, expiresAt); err != nil {
		h.logger.Error("revoke token", zap.Error(err))
		respond.Upstream(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Get returns the public profile of a user.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err, "find user")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"user": u.Profile()})
}

// Update merges the fields present in the body into the account.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := store.ParseID(id); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if h.selfOnly && middleware.UserID(r.Context()) != id {
		respond.Unauthorized(w)
		return
	}

	var req models.UpdateUserRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		respond.Invalid(w, err)
		return
	}
	if req.Contact != nil && req.Contact.Email != nil {
		email := models.NormalizeEmail(*req.Contact.Email)
		req.Contact.Email = &email
	}
	if req.FirstName != nil {
		name := strings.TrimSpace(*req.FirstName)
		req.FirstName = &name
	}
	if req.LastName != nil {
		name := strings.TrimSpace(*req.LastName)
		req.LastName = &name
	}
	set, err := store.SetFields(&req)
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	u, err := h.users.UpdateByID(r.Context(), id, set)
	if err != nil {
		h.storeError(w, err, "update user")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"user": u.Profile()})
}

// Delete removes the account after re-checking its password, then every
// listing it owns and their photos. The steps are not transactional.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := store.ParseID(id); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid id")
		return
	}
	if h.selfOnly && middleware.UserID(r.Context()) != id {
		respond.Unauthorized(w)
		return
	}

	var req models.DeleteUserRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		respond.Invalid(w, err)
		return
	}

	u, err := h.users.FindByID(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "find user")
		return
	}
	if !auth.VerifyPassword(req.Password, u.Password) {
		respond.Unauthorized(w)
		return
	}

	owned, err := h.listings.FindByOwner(r.Context(), u.ID)
	if err != nil {
		h.logger.Error("find owned listings", zap.String("user_id", id), zap.Error(err))
		respond.Upstream(w, err)
		return
	}

	if err := h.users.DeleteByID(r.Context(), id); err != nil {
		h.storeError(w, err, "delete user")
		return
	}

	removed, err := h.listings.DeleteByOwner(r.Context(), u.ID)
	if err != nil {
		h.logger.Error("cascade listings", zap.String("user_id", id), zap.Error(err))
		respond.Upstream(w, err)
		return
	}

	var errs error
	for _, l := range owned {
		errs = multierr.Append(errs, h.photos.RemoveListing(r.Context(), l.ID.Hex()))
	}
	if errs != nil {
		h.logger.Warn("photos left behind",
			zap.String("user_id", id),
			zap.Int("failures", len(multierr.Errors(errs))),
			zap.Error(errs),
		)
	}

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"message":          "Successfully deleted.",
		"listings_deleted": removed,
	})
}

func (h *Handler) storeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, store.ErrInvalidID):
		respond.Error(w, http.StatusBadRequest, "Invalid id")
	case errors.Is(err, store.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "User not found")
	default:
		h.logger.Error(op, zap.Error(err))
		respond.Upstream(w, err)
	}
}
