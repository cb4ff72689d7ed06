package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlaceholderThumb is used as a summary thumbnail until a listing has photos.
const PlaceholderThumb = "/static/no-photo.png"

// Mileage is an odometer reading.
type Mileage struct {
	Value float64     `json:"value" bson:"value"`
	Unit  MileageUnit `json:"unit"  bson:"unit"`
}

// Price is an asking price.
type Price struct {
	Value    float64  `json:"value"    bson:"value"`
	Currency Currency `json:"currency" bson:"currency"`
}

// Features groups the technical details of the vehicle.
type Features struct {
	Cylinders    int          `json:"cylinders,omitempty" bson:"cylinders,omitempty"`
	Engine       string       `json:"engine,omitempty"    bson:"engine,omitempty"`
	Drive        Drive        `json:"drive"               bson:"drive"`
	Fuel         Fuel         `json:"fuel"                bson:"fuel"`
	Color        string       `json:"color"               bson:"color"`
	BodyType     BodyType     `json:"body_type"           bson:"body_type"`
	Title        TitleStatus  `json:"title"               bson:"title"`
	Transmission Transmission `json:"transmission"        bson:"transmission"`
	HP           int          `json:"hp,omitempty"        bson:"hp,omitempty"`
	Doors        int          `json:"doors,omitempty"     bson:"doors,omitempty"`
}

// Location is where the vehicle can be seen.
type Location struct {
	State   string `json:"state"   bson:"state"`
	Country string `json:"country" bson:"country"`
}

// Listing is a vehicle sale post stored in the listings collection.
type Listing struct {
	ID          primitive.ObjectID `json:"id"          bson:"_id,omitempty"`
	Make        string             `json:"car_make"    bson:"car_make"`
	Model       string             `json:"car_model"   bson:"car_model"`
	Version     string             `json:"version"     bson:"version"`
	Mileage     Mileage            `json:"mileage"     bson:"mileage"`
	Description string             `json:"description" bson:"description"`
	Features    Features           `json:"features"    bson:"features"`
	Year        int                `json:"year"        bson:"year"`
	Price       Price              `json:"price"       bson:"price"`
	OwnerID     primitive.ObjectID `json:"ownerId"     bson:"owner_id"`
	Location    Location           `json:"location"    bson:"location"`
	Photos      []string           `json:"photos"      bson:"photos"`
	CreatedAt   time.Time          `json:"created_at"  bson:"created_at"`
}

// Summary is the reduced copy of a Listing embedded in its owner's sales.
type Summary struct {
	PostID    primitive.ObjectID `json:"post_id"    bson:"post_id"`
	PostThumb string             `json:"post_thumb" bson:"post_thumb"`
	Make      string             `json:"car_make"   bson:"car_make"`
	Model     string             `json:"car_model"  bson:"car_model"`
	Year      int                `json:"year"       bson:"year"`
	Price     Price              `json:"price"      bson:"price"`
	Version   string             `json:"version"    bson:"version"`
}

// Summarize projects a listing into its owner-side summary.
func Summarize(l *Listing) Summary {
	thumb := PlaceholderThumb
	if len(l.Photos) > 0 {
		thumb = l.Photos[0]
	}
	return Summary{
		PostID:    l.ID,
		PostThumb: thumb,
		Make:      l.Make,
		Model:     l.Model,
		Year:      l.Year,
		Price:     l.Price,
		Version:   l.Version,
	}
}
