// Package listing serves vehicle sale posts: search with filters and
// pagination, CRUD for owners, photos, and the owner-side summaries.
package listing

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ayush/autos-marketplace/backend/internal/models"
	"github.com/ayush/autos-marketplace/backend/internal/validation"
)

const (
	// PageSize is the fixed number of listings per page.
	PageSize = 10
	// MinYear is the lower bound of the year filter and of model years.
	MinYear = 1940
	// MaxYear bounds year parameters during validation.
	MaxYear = 2100
	// Sentinel is the default upper bound of the price and mileage ranges.
	Sentinel = 1e12
)

// Query holds the search parameters of GET /listings. Numeric parameters
// that are missing or do not parse are left nil and fall back to defaults.
type Query struct {
	Make       string          `json:"make"       validate:"omitempty,max=32,alphanumspace"`
	Model      string          `json:"model"      validate:"omitempty,max=32,alphanumspace"`
	BodyType   models.BodyType `json:"bodyType"   validate:"omitempty,enum"`
	MinYear    *int            `json:"minYear"    validate:"omitempty,gte=1940,lte=2100"`
	MaxYear    *int            `json:"maxYear"    validate:"omitempty,gte=1940,lte=2100"`
	MinPrice   *float64        `json:"minPrice"   validate:"omitempty,gte=0,lte=1000000000000"`
	MaxPrice   *float64        `json:"maxPrice"   validate:"omitempty,gte=0,lte=1000000000000"`
	MinMileage *float64        `json:"minMileage" validate:"omitempty,gte=0,lte=1000000000000"`
	MaxMileage *float64        `json:"maxMileage" validate:"omitempty,gte=0,lte=1000000000000"`
	Page       *int            `json:"page"       validate:"omitempty,gte=0"`
}

// ParseQuery reads the search parameters from a query string.
func ParseQuery(v url.Values) Query {
	return Query{
		Make:       strings.TrimSpace(v.Get("make")),
		Model:      strings.TrimSpace(v.Get("model")),
		BodyType:   models.BodyType(strings.TrimSpace(v.Get("bodyType"))),
		MinYear:    parseInt(v.Get("minYear")),
		MaxYear:    parseInt(v.Get("maxYear")),
		MinPrice:   parseFloat(v.Get("minPrice")),
		MaxPrice:   parseFloat(v.Get("maxPrice")),
		MinMileage: parseFloat(v.Get("minMileage")),
		MaxMileage: parseFloat(v.Get("maxMileage")),
		Page:       parseInt(v.Get("page")),
	}
}

func parseInt(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

func parseFloat(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Validate returns validation.Errors listing every bad parameter.
func (q Query) Validate() error {
	var out validation.Errors
	if err := validation.Struct(&q); err != nil {
		verrs, ok := err.(validation.Errors)
		if !ok {
			return err
		}
		out = append(out, verrs...)
	}
	if q.MinYear != nil && q.MaxYear != nil && *q.MinYear > *q.MaxYear {
		out = append(out, rangeError("minYear", "maxYear"))
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		out = append(out, rangeError("minPrice", "maxPrice"))
	}
	if q.MinMileage != nil && q.MaxMileage != nil && *q.MinMileage > *q.MaxMileage {
		out = append(out, rangeError("minMileage", "maxMileage"))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func rangeError(min, max string) validation.FieldError {
	return validation.FieldError{
		Field:   min,
		Rule:    "ltefield",
		Param:   max,
		Message: min + " must be less than or equal to " + max,
	}
}

// YearRange is an inclusive model year interval.
type YearRange struct {
	Min int
	Max int
}

// Range is an inclusive numeric interval.
type Range struct {
	Min float64
	Max float64
}

// Filter is the structured form of a search: optional equality
// constraints, range constraints that are always present, and the page.
type Filter struct {
	Make     string
	Model    string
	BodyType models.BodyType
	Year     YearRange
	Price    Range
	Mileage  Range
	Page     int
}

// Skip is the number of matching listings before the requested page.
func (f Filter) Skip() int64 { return int64(f.Page) * PageSize }

// Limit is the page size.
func (f Filter) Limit() int64 { return PageSize }

// BSON renders the filter for the listings collection.
func (f Filter) BSON() bson.M {
	m := bson.M{
		"year":          bson.M{"$gte": f.Year.Min, "$lte": f.Year.Max},
		"price.value":   bson.M{"$gte": f.Price.Min, "$lte": f.Price.Max},
		"mileage.value": bson.M{"$gte": f.Mileage.Min, "$lte": f.Mileage.Max},
	}
	if f.Make != "" {
		m["car_make"] = f.Make
	}
	if f.Model != "" {
		m["car_model"] = f.Model
	}
	if f.BodyType != "" {
		m["features.body_type"] = string(f.BodyType)
	}
	return m
}

// Matches reports whether l satisfies the filter, using the same rules
// the BSON form expresses.
func (f Filter) Matches(l *models.Listing) bool {
	if f.Make != "" && l.Make != f.Make {
		return false
	}
	if f.Model != "" && l.Model != f.Model {
		return false
	}
	if f.BodyType != "" && l.Features.BodyType != f.BodyType {
		return false
	}
	return l.Year >= f.Year.Min && l.Year <= f.Year.Max &&
		l.Price.Value >= f.Price.Min && l.Price.Value <= f.Price.Max &&
		l.Mileage.Value >= f.Mileage.Min && l.Mileage.Value <= f.Mileage.Max
}

// FilterBuilder turns validated queries into filters. The clock decides
// the default upper year bound.
type FilterBuilder struct {
	now func() time.Time
}

func NewFilterBuilder(now func() time.Time) *FilterBuilder {
	if now == nil {
		now = time.Now
	}
	return &FilterBuilder{now: now}
}

// Build applies defaults for every bound the query leaves out.
func (b *FilterBuilder) Build(q Query) Filter {
	f := Filter{
		Make:     q.Make,
		Model:    q.Model,
		BodyType: q.BodyType,
		Year:     YearRange{Min: MinYear, Max: b.now().Year()},
		Price:    Range{Min: 0, Max: Sentinel},
		Mileage:  Range{Min: 0, Max: Sentinel},
	}
	if q.MinYear != nil {
		f.Year.Min = *q.MinYear
	}
	if q.MaxYear != nil {
		f.Year.Max = *q.MaxYear
	}
	if q.MinPrice != nil {
		f.Price.Min = *q.MinPrice
	}
	if q.MaxPrice != nil {
		f.Price.Max = *q.MaxPrice
	}
	if q.MinMileage != nil {
		f.Mileage.Min = *q.MinMileage
	}
	if q.MaxMileage != nil {
		f.Mileage.Max = *q.MaxMileage
	}
	if q.Page != nil && *q.Page > 0 {
		f.Page = *q.Page
	}
	return f
}
