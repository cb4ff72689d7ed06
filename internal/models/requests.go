package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddressInput is the address block accepted on registration.
type AddressInput struct {
	State   string `json:"state"   validate:"required"`
	Country string `json:"country" validate:"required"`
}

// ContactInput is the contact block accepted on registration.
type ContactInput struct {
	Email       string `json:"email"        validate:"required,min=6,email"`
	PhoneNumber string `json:"phone_number"`
}

// RegisterRequest is the JSON body for POST /users/register.
type RegisterRequest struct {
	FirstName     string        `json:"first_name"     validate:"required,min=6"`
	LastName      string        `json:"last_name"      validate:"required,min=6"`
	Email         string        `json:"email"          validate:"required,min=6,email"`
	Password      string        `json:"pwd"            validate:"required,min=6"`
	AcceptedTerms *bool         `json:"accepted_terms" validate:"required"`
	Gender        Gender        `json:"gender"         validate:"omitempty,enum"`
	Address       *AddressInput `json:"address"        validate:"omitempty"`
	Contact       *ContactInput `json:"contact"        validate:"omitempty"`
}

// NormalizeEmail trims and lowercases an address so uniqueness checks
// compare the stored form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User builds the document to insert; the caller supplies the password hash.
func (r *RegisterRequest) User(hash string, now time.Time) *User {
	u := &User{
		Email:         NormalizeEmail(r.Email),
		FirstName:     strings.TrimSpace(r.FirstName),
		LastName:      strings.TrimSpace(r.LastName),
		AcceptedTerms: r.AcceptedTerms != nil && *r.AcceptedTerms,
		Gender:        r.Gender,
		Password:      hash,
		Sales:         []Summary{},
		CreatedAt:     now,
	}
	if r.Address != nil {
		u.Address = Address{Country: r.Address.Country, State: r.Address.State}
	}
	if r.Contact != nil {
		u.Contact = Contact{Email: NormalizeEmail(r.Contact.Email), PhoneNumber: r.Contact.PhoneNumber}
	}
	return u
}

// AuthRequest is the JSON body for POST /users/auth.
type AuthRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"pwd"   validate:"required"`
}

// DeleteUserRequest carries the password confirming an account deletion.
type DeleteUserRequest struct {
	Password string `json:"pwd" validate:"required"`
}

// UpdateUserRequest is the JSON body for PATCH /users/{id}. Only the
// fields present are written.
type UpdateUserRequest struct {
	FirstName *string       `json:"first_name,omitempty" bson:"first_name,omitempty" validate:"omitempty,min=6"`
	LastName  *string       `json:"last_name,omitempty"  bson:"last_name,omitempty"  validate:"omitempty,min=6"`
	Gender    *Gender       `json:"gender,omitempty"     bson:"gender,omitempty"     validate:"omitempty,enum"`
	Address   *AddressPatch `json:"address,omitempty"    bson:"address,omitempty"`
	Contact   *ContactPatch `json:"contact,omitempty"    bson:"contact,omitempty"`
}

type AddressPatch struct {
	State   *string `json:"state,omitempty"   bson:"state,omitempty"   validate:"omitempty,min=1"`
	Country *string `json:"country,omitempty" bson:"country,omitempty" validate:"omitempty,min=1"`
}

type ContactPatch struct {
	Email       *string `json:"email,omitempty"        bson:"email,omitempty"        validate:"omitempty,min=6,email"`
	PhoneNumber *string `json:"phone_number,omitempty" bson:"phone_number,omitempty" validate:"omitempty,min=1"`
}

// MileageInput is the mileage block of a new listing.
type MileageInput struct {
	Value *float64    `json:"value" validate:"required,gte=0"`
	Unit  MileageUnit `json:"unit"  validate:"required,enum"`
}

// PriceInput is the price block of a new listing.
type PriceInput struct {
	Value    float64  `json:"value"    validate:"required,gt=0"`
	Currency Currency `json:"currency" validate:"required,enum"`
}

// FeaturesInput is the features block of a new listing.
type FeaturesInput struct {
	Cylinders    int          `json:"cylinders"    validate:"omitempty,gt=0,lte=16"`
	Engine       string       `json:"engine"`
	Drive        Drive        `json:"drive"        validate:"required,enum"`
	Fuel         Fuel         `json:"fuel"         validate:"required,enum"`
	Color        string       `json:"color"        validate:"required"`
	BodyType     BodyType     `json:"body_type"    validate:"required,enum"`
	Title        TitleStatus  `json:"title"        validate:"required,enum"`
	Transmission Transmission `json:"transmission" validate:"required,enum"`
	HP           int          `json:"hp"           validate:"omitempty,gt=0"`
	Doors        int          `json:"doors"        validate:"omitempty,gt=0,lte=8"`
}

// LocationInput is the location block of a new listing.
type LocationInput struct {
	State   string `json:"state"   validate:"required"`
	Country string `json:"country" validate:"required"`
}

// CreateListingRequest is the JSON body for POST /listings.
type CreateListingRequest struct {
	Make        string         `json:"car_make"    validate:"required,max=16"`
	Model       string         `json:"car_model"   validate:"required"`
	Version     string         `json:"version"     validate:"required"`
	Mileage     *MileageInput  `json:"mileage"     validate:"required"`
	Description string         `json:"description"`
	Features    *FeaturesInput `json:"features"    validate:"required"`
	Year        int            `json:"year"        validate:"required,gt=1940"`
	Price       *PriceInput    `json:"price"       validate:"required"`
	OwnerID     string         `json:"ownerId"     validate:"required,len=24,hexadecimal"`
	Location    *LocationInput `json:"location"    validate:"required"`
}

// Listing builds the document to insert for an already verified owner.
func (r *CreateListingRequest) Listing(owner primitive.ObjectID, now time.Time) *Listing {
	f := r.Features
	return &Listing{
		Make:        strings.TrimSpace(r.Make),
		Model:       strings.TrimSpace(r.Model),
		Version:     strings.TrimSpace(r.Version),
		Mileage:     Mileage{Value: *r.Mileage.Value, Unit: r.Mileage.Unit},
		Description: r.Description,
		Features: Features{
			Cylinders:    f.Cylinders,
			Engine:       f.Engine,
			Drive:        f.Drive,
			Fuel:         f.Fuel,
			Color:        f.Color,
			BodyType:     f.BodyType,
			Title:        f.Title,
			Transmission: f.Transmission,
			HP:           f.HP,
			Doors:        f.Doors,
		},
		Year:      r.Year,
		Price:     Price{Value: r.Price.Value, Currency: r.Price.Currency},
		OwnerID:   owner,
		Location:  Location{State: r.Location.State, Country: r.Location.Country},
		Photos:    []string{},
		CreatedAt: now,
	}
}

// UpdateListingRequest is the JSON body for PATCH /listings/{id}. Nested
// blocks are merged field by field rather than replaced.
type UpdateListingRequest struct {
	Make        *string        `json:"car_make,omitempty"    bson:"car_make,omitempty"    validate:"omitempty,min=1,max=16"`
	Model       *string        `json:"car_model,omitempty"   bson:"car_model,omitempty"   validate:"omitempty,min=1"`
	Version     *string        `json:"version,omitempty"     bson:"version,omitempty"     validate:"omitempty,min=1"`
	Mileage     *MileagePatch  `json:"mileage,omitempty"     bson:"mileage,omitempty"`
	Description *string        `json:"description,omitempty" bson:"description,omitempty"`
	Features    *FeaturesPatch `json:"features,omitempty"    bson:"features,omitempty"`
	Year        *int           `json:"year,omitempty"        bson:"year,omitempty"        validate:"omitempty,gt=1940"`
	Price       *PricePatch    `json:"price,omitempty"       bson:"price,omitempty"`
	Location    *LocationPatch `json:"location,omitempty"    bson:"location,omitempty"`
}

type MileagePatch struct {
	Value *float64     `json:"value,omitempty" bson:"value,omitempty" validate:"omitempty,gt=0"`
	Unit  *MileageUnit `json:"unit,omitempty"  bson:"unit,omitempty"  validate:"omitempty,enum"`
}

type PricePatch struct {
	Value    *float64  `json:"value,omitempty"    bson:"value,omitempty"    validate:"omitempty,gt=0"`
	Currency *Currency `json:"currency,omitempty" bson:"currency,omitempty" validate:"omitempty,enum"`
}

type FeaturesPatch struct {
	Cylinders    *int          `json:"cylinders,omitempty"    bson:"cylinders,omitempty"    validate:"omitempty,gt=0,lte=16"`
	Engine       *string       `json:"engine,omitempty"       bson:"engine,omitempty"`
	Drive        *Drive        `json:"drive,omitempty"        bson:"drive,omitempty"        validate:"omitempty,enum"`
	Fuel         *Fuel         `json:"fuel,omitempty"         bson:"fuel,omitempty"         validate:"omitempty,enum"`
	Color        *string       `json:"color,omitempty"        bson:"color,omitempty"        validate:"omitempty,min=1"`
	BodyType     *BodyType     `json:"body_type,omitempty"    bson:"body_type,omitempty"    validate:"omitempty,enum"`
	Title        *TitleStatus  `json:"title,omitempty"        bson:"title,omitempty"        validate:"omitempty,enum"`
	Transmission *Transmission `json:"transmission,omitempty" bson:"transmission,omitempty" validate:"omitempty,enum"`
	HP           *int          `json:"hp,omitempty"           bson:"hp,omitempty"           validate:"omitempty,gt=0"`
	Doors        *int          `json:"doors,omitempty"        bson:"doors,omitempty"        validate:"omitempty,gt=0,lte=8"`
}

type LocationPatch struct {
	State   *string `json:"state,omitempty"   bson:"state,omitempty"   validate:"omitempty,min=1"`
	Country *string `json:"country,omitempty" bson:"country,omitempty" validate:"omitempty,min=1"`
}

// DeleteListingRequest names the user asking for the deletion.
type DeleteListingRequest struct {
	UserID string `json:"userId" validate:"omitempty,len=24,hexadecimal"`
}
