package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ayush/autos-marketplace/backend/internal/auth"
	"github.com/ayush/autos-marketplace/backend/internal/middleware"
	"github.com/ayush/autos-marketplace/backend/internal/models"
	"github.com/ayush/autos-marketplace/backend/internal/store"
	"github.com/ayush/autos-marketplace/backend/internal/store/storetest"
)

// ── fakes ──

type fakeListings struct {
	docs map[primitive.ObjectID]*models.Listing
	err  error
}

func newFakeListings() *fakeListings {
	return &fakeListings{docs: map[primitive.ObjectID]*models.Listing{}}
}

func (f *fakeListings) Insert(_ context.Context, l *models.Listing) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	l.ID = primitive.NewObjectID()
	cp := *l
	f.docs[l.ID] = &cp
	return l.ID.Hex(), nil
}

func (f *fakeListings) FindByID(_ context.Context, id string) (*models.Listing, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return nil, err
	}
	l, ok := f.docs[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeListings) Find(_ context.Context, sel store.Selector) ([]models.Listing, error) {
	if f.err != nil {
		return nil, f.err
	}
	filter := sel.(Filter)
	var out []models.Listing
	for _, l := range f.docs {
		if filter.Matches(l) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	skip, limit := int(sel.Skip()), int(sel.Limit())
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeListings) UpdateByID(_ context.Context, id string, set bson.M) (*models.Listing, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return nil, err
	}
	l, ok := f.docs[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := storetest.ApplySet(l, set); err != nil {
		return nil, err
	}
	cp := *l
	return &cp, nil
}

func (f *fakeListings) AddPhoto(_ context.Context, id, key string) (*models.Listing, error) {
	oid, _ := store.ParseID(id)
	l, ok := f.docs[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	l.Photos = append(l.Photos, key)
	cp := *l
	return &cp, nil
}

func (f *fakeListings) DeleteByID(_ context.Context, id string) (*models.Listing, error) {
	oid, _ := store.ParseID(id)
	l, ok := f.docs[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(f.docs, oid)
	return l, nil
}

type fakeOwners struct {
	users map[primitive.ObjectID]*models.User
}

func (f *fakeOwners) FindByID(_ context.Context, id string) (*models.User, error) {
	oid, err := store.ParseID(id)
	if err != nil {
		return nil, err
	}
	u, ok := f.users[oid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeOwners) AppendSummary(_ context.Context, owner primitive.ObjectID, s models.Summary) error {
	u, ok := f.users[owner]
	if !ok {
		return store.ErrNotFound
	}
	for _, existing := range u.Sales {
		if existing.PostID == s.PostID {
			return nil
		}
	}
	u.Sales = append(u.Sales, s)
	return nil
}

type fakePhotos struct {
	objects map[string][]byte
	types   map[string]string
	seq     int
	failRm  bool
}

func newFakePhotos() *fakePhotos {
	return &fakePhotos{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakePhotos) Upload(_ context.Context, listingID string, data []byte, contentType string) (string, error) {
	ext, ok := store.PhotoExtension(contentType)
	if !ok {
		return "", store.ErrUnsupportedPhoto
	}
	f.seq++
	key := store.PhotoKey(listingID, fmt.Sprintf("photo-%d%s", f.seq, ext))
	f.objects[key] = data
	f.types[key] = contentType
	return key, nil
}

func (f *fakePhotos) Download(_ context.Context, key string) ([]byte, string, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, "", store.ErrNotFound
	}
	return data, f.types[key], nil
}

func (f *fakePhotos) Remove(_ context.Context, key string) error {
	if f.failRm {
		return errors.New("minio unavailable")
	}
	delete(f.objects, key)
	return nil
}

func (f *fakePhotos) RemoveListing(_ context.Context, listingID string) error {
	if f.failRm {
		return errors.New("minio unavailable")
	}
	for key := range f.objects {
		if strings.HasPrefix(key, store.PhotoPrefix(listingID)) {
			delete(f.objects, key)
		}
	}
	return nil
}

// ── harness ──

type harness struct {
	router   http.Handler
	listings *fakeListings
	owners   *fakeOwners
	photos   *fakePhotos
	tokens   *auth.Tokens
	owner    *models.User
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	tokens, err := auth.NewTokens(auth.TokenConfig{Secret: "listing-test-secret", TTL: time.Hour})
	require.NoError(t, err)

	owner := &models.User{ID: primitive.NewObjectID(), Email: "seller@example.com", Sales: []models.Summary{}}
	h := &harness{
		listings: newFakeListings(),
		owners:   &fakeOwners{users: map[primitive.ObjectID]*models.User{owner.ID: owner}},
		photos:   newFakePhotos(),
		tokens:   tokens,
		owner:    owner,
	}
	if opts.Now == nil {
		opts.Now = fixedNow
	}

	handler := NewHandler(h.listings, h.owners, h.photos, zap.NewNop(), opts)
	handler.sync.backoff = 0

	r := chi.NewRouter()
	handler.Mount(r, middleware.RequireToken(tokens, nil, zap.NewNop()))
	h.router = r
	return h
}

func (h *harness) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := h.tokens.Issue(userID)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(auth.TokenHeader, token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) seed(year int, brand string, created time.Time) *models.Listing {
	l := &models.Listing{
		ID:        primitive.NewObjectID(),
		Make:      brand,
		Model:     "Model",
		Version:   "base",
		Year:      year,
		Mileage:   models.Mileage{Value: 1000, Unit: models.UnitKm},
		Price:     models.Price{Value: 20000, Currency: models.CurrencyUSD},
		Features:  models.Features{BodyType: models.BodySedan, Color: "red"},
		Location:  models.Location{State: "SP", Country: "Brazil"},
		OwnerID:   h.owner.ID,
		Photos:    []string{},
		CreatedAt: created,
	}
	h.listings.docs[l.ID] = l
	return l
}

func createBody(ownerID string) map[string]interface{} {
	return map[string]interface{}{
		"car_make":  "Toyota",
		"car_model": "Corolla",
		"version":   "XEi",
		"mileage":   map[string]interface{}{"value": 32000, "unit": "km"},
		"features": map[string]interface{}{
			"drive":        "FWD",
			"fuel":         "gasoline",
			"color":        "silver",
			"body_type":    "sedan",
			"title":        "clean",
			"transmission": "CVT",
		},
		"year":     2019,
		"price":    map[string]interface{}{"value": 85000, "currency": "brl"},
		"ownerId":  ownerID,
		"location": map[string]interface{}{"state": "SP", "country": "Brazil"},
	}
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// ── tests ──

func TestListFiltersAndPaginates(t *testing.T) {
	h := newHarness(t, Options{})
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		h.seed(2012, "Toyota", base.Add(time.Duration(i)*time.Hour))
	}
	h.seed(2016, "Toyota", base)
	h.seed(2015, "Honda", base)

	w := h.do(t, http.MethodGet, "/listings?make=Toyota&minYear=2010&maxYear=2015", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Len(t, body["listings"], PageSize)
	assert.EqualValues(t, 0, body["page"])
	assert.EqualValues(t, PageSize, body["page_size"])

	w = h.do(t, http.MethodGet, "/listings?make=Toyota&minYear=2010&maxYear=2015&page=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["listings"], 2)
}

func TestListEmptyPageIsArray(t *testing.T) {
	h := newHarness(t, Options{})
	w := h.do(t, http.MethodGet, "/listings?page=4", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decode(t, w)["listings"])
}

func TestListRejectsBadQuery(t *testing.T) {
	h := newHarness(t, Options{})
	w := h.do(t, http.MethodGet, "/listings?bodyType=tank&minYear=1800", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, decode(t, w)["errors"], 2)
}

func TestListStoreFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.listings.err = errors.New("connection reset")
	w := h.do(t, http.MethodGet, "/listings", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "connection reset", decode(t, w)["error"])
}

func TestCreate(t *testing.T) {
	h := newHarness(t, Options{})
	ownerID := h.owner.ID.Hex()

	w := h.do(t, http.MethodPost, "/listings", h.token(t, ownerID), createBody(ownerID))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	id, _ := decode(t, w)["id"].(string)
	require.Len(t, id, 24)
	oid, _ := primitive.ObjectIDFromHex(id)
	stored := h.listings.docs[oid]
	require.NotNil(t, stored)
	assert.Equal(t, h.owner.ID, stored.OwnerID)
	assert.Equal(t, fixedNow(), stored.CreatedAt)

	require.Len(t, h.owner.Sales, 1)
	assert.Equal(t, oid, h.owner.Sales[0].PostID)
	assert.Equal(t, models.PlaceholderThumb, h.owner.Sales[0].PostThumb)
	assert.Equal(t, "Toyota", h.owner.Sales[0].Make)
}

func TestCreateUnknownOwner(t *testing.T) {
	h := newHarness(t, Options{})
	stranger := primitive.NewObjectID().Hex()

	w := h.do(t, http.MethodPost, "/listings", h.token(t, stranger), createBody(stranger))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Owner Id does not exist", decode(t, w)["error"])
	assert.Empty(t, h.listings.docs)
}

func TestCreateRequiresToken(t *testing.T) {
	h := newHarness(t, Options{})
	w := h.do(t, http.MethodPost, "/listings", "", createBody(h.owner.ID.Hex()))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodPost, "/listings", "garbage", createBody(h.owner.ID.Hex()))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t, Options{})
	body := createBody(h.owner.ID.Hex())
	body["year"] = 1930
	delete(body, "price")

	w := h.do(t, http.MethodPost, "/listings", h.token(t, h.owner.ID.Hex()), body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, decode(t, w)["errors"], 2)
	assert.Empty(t, h.listings.docs)
}

func TestCreateOwnerFromToken(t *testing.T) {
	h := newHarness(t, Options{OwnerFromToken: true})
	other := primitive.NewObjectID().Hex()

	w := h.do(t, http.MethodPost, "/listings", h.token(t, other), createBody(h.owner.ID.Hex()))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGet(t *testing.T) {
	h := newHarness(t, Options{})
	l := h.seed(2018, "Fiat", fixedNow())

	w := h.do(t, http.MethodGet, "/listings/"+l.ID.Hex(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)["listing"].(map[string]interface{})
	assert.Equal(t, "Fiat", got["car_make"])

	w = h.do(t, http.MethodGet, "/listings/"+primitive.NewObjectID().Hex(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodGet, "/listings/not-an-id", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateMergesAndIsIdempotent(t *testing.T) {
	h := newHarness(t, Options{})
	l := h.seed(2018, "Fiat", fixedNow())
	tok := h.token(t, h.owner.ID.Hex())
	patch := map[string]interface{}{
		"price": map[string]interface{}{"value": 18500},
		"year":  2019,
	}

	first := h.do(t, http.MethodPatch, "/listings/"+l.ID.Hex(), tok, patch)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := h.do(t, http.MethodPatch, "/listings/"+l.ID.Hex(), tok, patch)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	stored := h.listings.docs[l.ID]
	assert.Equal(t, 18500.0, stored.Price.Value)
	assert.Equal(t, models.CurrencyUSD, stored.Price.Currency)
	assert.Equal(t, 2019, stored.Year)
	assert.Equal(t, "Fiat", stored.Make)
}

func TestUpdateErrors(t *testing.T) {
	h := newHarness(t, Options{})
	tok := h.token(t, h.owner.ID.Hex())

	w := h.do(t, http.MethodPatch, "/listings/"+primitive.NewObjectID().Hex(), tok, map[string]interface{}{"year": 2001})
	assert.Equal(t, http.StatusNotFound, w.Code)

	l := h.seed(2018, "Fiat", fixedNow())
	w = h.do(t, http.MethodPatch, "/listings/"+l.ID.Hex(), tok, map[string]interface{}{"features": map[string]interface{}{"fuel": "coal"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPatch, "/listings/"+l.ID.Hex(), "", map[string]interface{}{"year": 2001})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateRejectsBlankingRequiredFields(t *testing.T) {
	h := newHarness(t, Options{})
	l := h.seed(2018, "Fiat", fixedNow())
	tok := h.token(t, h.owner.ID.Hex())

	for _, patch := range []map[string]interface{}{
		{"features": map[string]string{"color": ""}},
		{"location": map[string]string{"state": "", "country": ""}},
		{"car_model": ""},
	} {
		w := h.do(t, http.MethodPatch, "/listings/"+l.ID.Hex(), tok, patch)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", patch)
	}

	stored := h.listings.docs[l.ID]
	assert.Equal(t, "red", stored.Features.Color)
	assert.Equal(t, models.Location{State: "SP", Country: "Brazil"}, stored.Location)
	assert.Equal(t, "Model", stored.Model)
}

func TestUpdateRejectsUnknownFields(t *testing.T) {
	h := newHarness(t, Options{})
	l := h.seed(2018, "Fiat", fixedNow())
	thief := primitive.NewObjectID().Hex()

	w := h.do(t, http.MethodPatch, "/listings/"+l.ID.Hex(), h.token(t, h.owner.ID.Hex()), map[string]interface{}{
		"year":    2020,
		"ownerId": thief,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	errs, _ := decode(t, w)["errors"].([]interface{})
	require.Len(t, errs, 1)
	first := errs[0].(map[string]interface{})
	assert.Equal(t, "ownerId", first["field"])
	assert.Equal(t, "unknown", first["rule"])

	stored := h.listings.docs[l.ID]
	assert.Equal(t, 2018, stored.Year)
	assert.Equal(t, h.owner.ID, stored.OwnerID)
}

func TestDelete(t *testing.T) {
	h := newHarness(t, Options{})
	l := h.seed(2018, "Fiat", fixedNow())
	key := store.PhotoKey(l.ID.Hex(), "front.png")
	l.Photos = []string{key}
	h.photos.objects[key] = []byte("png")
	h.photos.objects[store.PhotoKey(l.ID.Hex(), "unreferenced.png")] = []byte("png")
	otherKey := store.PhotoKey(primitive.NewObjectID().Hex(), "side.png")
	h.photos.objects[otherKey] = []byte("png")
	h.owner.Sales = []models.Summary{models.Summarize(l)}
	tok := h.token(t, h.owner.ID.Hex())

	w := h.do(t, http.MethodDelete, "/listings/"+l.ID.Hex(), tok, map[string]string{"userId": primitive.NewObjectID().Hex()})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, h.listings.docs, l.ID)

	w = h.do(t, http.MethodDelete, "/listings/"+l.ID.Hex(), tok, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodDelete, "/listings/"+l.ID.Hex(), tok, map[string]string{"userId": h.owner.ID.Hex()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Successfully deleted.", decode(t, w)["message"])
	assert.NotContains(t, h.listings.docs, l.ID)
	assert.Equal(t, []string{otherKey}, keys(h.photos.objects))
	assert.Len(t, h.owner.Sales, 1)

	w = h.do(t, http.MethodDelete, "/listings/"+l.ID.Hex(), tok, map[string]string{"userId": h.owner.ID.Hex()})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteOwnerFromToken(t *testing.T) {
	h := newHarness(t, Options{OwnerFromToken: true})
	l := h.seed(2018, "Fiat", fixedNow())

	w := h.do(t, http.MethodDelete, "/listings/"+l.ID.Hex(), h.token(t, primitive.NewObjectID().Hex()), map[string]string{"userId": h.owner.ID.Hex()})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(t, http.MethodDelete, "/listings/"+l.ID.Hex(), h.token(t, h.owner.ID.Hex()), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteKeepsGoingWhenPhotoRemovalFails(t *testing.T) {
	h := newHarness(t, Options{})
	l := h.seed(2018, "Fiat", fixedNow())
	l.Photos = []string{"listings/" + l.ID.Hex() + "/a.png"}
	h.photos.failRm = true

	w := h.do(t, http.MethodDelete, "/listings/"+l.ID.Hex(), h.token(t, h.owner.ID.Hex()), map[string]string{"userId": h.owner.ID.Hex()})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, h.listings.docs, l.ID)
}

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func (h *harness) upload(t *testing.T, id, token, userID string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if userID != "" {
		require.NoError(t, mw.WriteField("userId", userID))
	}
	part, err := mw.CreateFormFile("photo", "car.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/listings/"+id+"/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(auth.TokenHeader, token)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestUploadAndDownloadPhoto(t *testing.T) {
	h := newHarness(t, Options{})
	l := h.seed(2018, "Fiat", fixedNow())
	tok := h.token(t, h.owner.ID.Hex())

	w := h.upload(t, l.ID.Hex(), tok, h.owner.ID.Hex(), pngHeader)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	key, _ := decode(t, w)["photo"].(string)
	require.True(t, strings.HasPrefix(key, "listings/"+l.ID.Hex()+"/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, []string{key}, h.listings.docs[l.ID].Photos)

	name := key[strings.LastIndex(key, "/")+1:]
	w = h.do(t, http.MethodGet, "/listings/"+l.ID.Hex()+"/photos/"+name, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, w.Body.Bytes())

	w = h.do(t, http.MethodGet, "/listings/"+l.ID.Hex()+"/photos/missing.png", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadRejects(t *testing.T) {
	h := newHarness(t, Options{MaxPhotoBytes: 64})
	l := h.seed(2018, "Fiat", fixedNow())
	tok := h.token(t, h.owner.ID.Hex())

	w := h.upload(t, l.ID.Hex(), tok, h.owner.ID.Hex(), []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.upload(t, l.ID.Hex(), tok, primitive.NewObjectID().Hex(), pngHeader)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.upload(t, l.ID.Hex(), tok, h.owner.ID.Hex(), append(pngHeader, make([]byte, 100)...))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	assert.Empty(t, h.photos.objects)
	assert.Empty(t, h.listings.docs[l.ID].Photos)
}
