package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/ayush/autos-marketplace/backend/internal/middleware"
	"github.com/ayush/autos-marketplace/backend/internal/models"
	"github.com/ayush/autos-marketplace/backend/internal/respond"
	"github.com/ayush/autos-marketplace/backend/internal/store"
	"github.com/ayush/autos-marketplace/backend/internal/validation"
)

// DefaultMaxPhotoBytes caps a single photo upload.
const DefaultMaxPhotoBytes = 5 << 20

// ListingStore defines the interface for listing persistence.
type ListingStore interface {
	Insert(ctx context.Context, l *models.Listing) (string, error)
	FindByID(ctx context.Context, id string) (*models.Listing, error)
	Find(ctx context.Context, sel store.Selector) ([]models.Listing, error)
	UpdateByID(ctx context.Context, id string, set bson.M) (*models.Listing, error)
	AddPhoto(ctx context.Context, id, key string) (*models.Listing, error)
	DeleteByID(ctx context.Context, id string) (*models.Listing, error)
}

// OwnerStore is the part of user persistence listings depend on.
type OwnerStore interface {
	SummaryWriter
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// PhotoStore defines the interface for photo object storage.
type PhotoStore interface {
	Upload(ctx context.Context, listingID string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
	RemoveListing(ctx context.Context, listingID string) error
}

// Options tune handler behaviour.
type Options struct {
	// OwnerFromToken makes ownership checks compare against the
	// authenticated caller instead of the userId sent in the request.
	OwnerFromToken bool
	MaxPhotoBytes  int64
	Now            func() time.Time
}

// Handler holds listing HTTP handlers.
type Handler struct {
	listings ListingStore
	users    OwnerStore
	photos   PhotoStore
	sync     *Synchronizer
	filters  *FilterBuilder
	logger   *zap.Logger
	opts     Options
}

func NewHandler(listings ListingStore, users OwnerStore, photos PhotoStore, logger *zap.Logger, opts Options) *Handler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxPhotoBytes <= 0 {
		opts.MaxPhotoBytes = DefaultMaxPhotoBytes
	}
	return &Handler{
		listings: listings,
		users:    users,
		photos:   photos,
		sync:     NewSynchronizer(users, logger),
		filters:  NewFilterBuilder(opts.Now),
		logger:   logger,
		opts:     opts,
	}
}

// Mount registers the listing routes; requireToken guards the writes.
func (h *Handler) Mount(r chi.Router, requireToken func(http.Handler) http.Handler) {
	r.Get("/listings", h.List)
	r.With(requireToken).Post("/listings", h.Create)
	r.Get("/listings/{id}", h.Get)
	r.With(requireToken).Patch("/listings/{id}", h.Update)
	r.With(requireToken).Delete("/listings/{id}", h.Delete)
	r.With(requireToken).Post("/listings/{id}/photos", h.UploadPhoto)
	r.Get("/listings/{id}/photos/{name}", h.DownloadPhoto)
}

// List returns one page of listings matching the query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := ParseQuery(r.URL.Query())
	if err := q.Validate(); err != nil {
		respond.Invalid(w, err)
		return
	}

	f := h.filters.Build(q)
	listings, err := h.listings.Find(r.Context(), f)
	if err != nil {
		h.logger.Error("find listings", zap.Error(err))
		respond.Upstream(w, err)
		return
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"listings":  listings,
		"page":      f.Page,
		"page_size": PageSize,
	})
}

// Create stores a new listing and appends its summary to the owner.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateListingRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		respond.Invalid(w, err)
		return
	}
	if h.opts.OwnerFromToken && req.OwnerID != middleware.UserID(r.Context()) {
		respond.Unauthorized(w)
		return
	}

	owner, err := h.users.FindByID(r.Context(), req.OwnerID)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidID):
		respond.Error(w, http.StatusBadRequest, "Owner Id does not exist")
		return
	case err != nil:
		h.logger.Error("find listing owner", zap.String("owner_id", req.OwnerID), zap.Error(err))
		respond.Upstream(w, err)
		return
	}

	l := req.Listing(owner.ID, h.opts.Now())
	id, err := h.listings.Insert(r.Context(), l)
	if err != nil {
		h.logger.Error("insert listing", zap.Error(err))
		respond.Upstream(w, err)
		return
	}

	if err := h.sync.Append(r.Context(), l); err != nil {
		h.logger.Error("listing stored without owner summary",
			zap.String("listing_id", id),
			zap.String("owner_id", req.OwnerID),
			zap.Error(err),
		)
	}

	respond.JSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Get returns a single listing.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	l, ok := h.load(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"listing": l})
}

// Update merges the fields present in the body into the listing.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := store.ParseID(id); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid id")
		return
	}

	var req models.UpdateListingRequest
	if err := validation.Decode(r.Body, &req); err != nil {
		respond.Invalid(w, err)
		return
	}
	if req.Make != nil {
		trimmed := strings.TrimSpace(*req.Make)
		req.Make = &trimmed
	}
	if req.Model != nil {
		trimmed := strings.TrimSpace(*req.Model)
		req.Model = &trimmed
	}
	set, err := store.SetFields(&req)
	if err != nil {
		respond.Invalid(w, err)
		return
	}

	l, err := h.listings.UpdateByID(r.Context(), id, set)
	if err != nil {
		h.storeError(w, err, "update listing")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"listing": l})
}

// Delete removes a listing owned by the requesting user. The owner's
// summary of it is left in place.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := store.ParseID(id); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid id")
		return
	}

	var req models.DeleteListingRequest
	if err := validation.Decode(r.Body, &req); err != nil && !errors.Is(err, validation.ErrEmptyBody) {
		respond.Invalid(w, err)
		return
	}

	l, err := h.listings.FindByID(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "find listing")
		return
	}
	if !h.isOwner(r, l, req.UserID) {
		respond.Unauthorized(w)
		return
	}

	deleted, err := h.listings.DeleteByID(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "delete listing")
		return
	}
	if err := h.photos.RemoveListing(r.Context(), id); err != nil {
		h.logger.Warn("photos left behind", zap.String("listing_id", id), zap.Error(err))
	}

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"listing": deleted,
		"message": "Successfully deleted.",
	})
}

// UploadPhoto stores a multipart "photo" file and references it from the
// listing.
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := store.ParseID(id); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(h.opts.MaxPhotoBytes); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, _, err := r.FormFile("photo")
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "photo is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.opts.MaxPhotoBytes+1))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "could not read photo")
		return
	}
	if int64(len(data)) > h.opts.MaxPhotoBytes {
		respond.Error(w, http.StatusRequestEntityTooLarge, "photo is too large")
		return
	}
	contentType := http.DetectContentType(data)
	if _, ok := store.PhotoExtension(contentType); !ok {
		respond.Error(w, http.StatusBadRequest, fmt.Sprintf("unsupported photo type %s", contentType))
		return
	}

	l, err := h.listings.FindByID(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "find listing")
		return
	}
	if !h.isOwner(r, l, r.FormValue("userId")) {
		respond.Unauthorized(w)
		return
	}

	key, err := h.photos.Upload(r.Context(), id, data, contentType)
	if err != nil {
		h.logger.Error("upload photo", zap.String("listing_id", id), zap.Error(err))
		respond.Upstream(w, err)
		return
	}

	updated, err := h.listings.AddPhoto(r.Context(), id, key)
	if err != nil {
		if rmErr := h.photos.Remove(r.Context(), key); rmErr != nil {
			h.logger.Warn("orphaned photo", zap.String("key", key), zap.Error(rmErr))
		}
		h.storeError(w, err, "reference photo")
		return
	}

	respond.JSON(w, http.StatusCreated, map[string]interface{}{
		"photo":   key,
		"listing": updated,
	})
}

// DownloadPhoto streams a photo referenced by the listing.
func (h *Handler) DownloadPhoto(w http.ResponseWriter, r *http.Request) {
	l, ok := h.load(w, r)
	if !ok {
		return
	}

	key := store.PhotoKey(l.ID.Hex(), chi.URLParam(r, "name"))
	if !contains(l.Photos, key) {
		respond.Error(w, http.StatusNotFound, "photo not found")
		return
	}

	data, contentType, err := h.photos.Download(r.Context(), key)
	if err != nil {
		h.storeError(w, err, "download photo")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

// load fetches the listing named by the {id} URL parameter, writing the
// error response itself when it cannot.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*models.Listing, bool) {
	id := chi.URLParam(r, "id")
	if _, err := store.ParseID(id); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid id")
		return nil, false
	}
	l, err := h.listings.FindByID(r.Context(), id)
	if err != nil {
		h.storeError(w, err, "find listing")
		return nil, false
	}
	return l, true
}

// isOwner compares the listing owner with the caller. Unless
// OwnerFromToken is set the caller is whoever the request claims to be.
func (h *Handler) isOwner(r *http.Request, l *models.Listing, claimed string) bool {
	caller := claimed
	if h.opts.OwnerFromToken {
		caller = middleware.UserID(r.Context())
	}
	return caller != "" && caller == l.OwnerID.Hex()
}

func (h *Handler) storeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, store.ErrInvalidID):
		respond.Error(w, http.StatusBadRequest, "Invalid id")
	case errors.Is(err, store.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "No auto sales matching this id was found")
	default:
		h.logger.Error(op, zap.Error(err))
		respond.Upstream(w, err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
