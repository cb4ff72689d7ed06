package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address is where a user is based.
type Address struct {
	Country string `json:"country" bson:"country"`
	State   string `json:"state"   bson:"state"`
}

// Contact holds the public contact channels of a seller.
type Contact struct {
	Email       string `json:"email"        bson:"email"`
	PhoneNumber string `json:"phone_number" bson:"phone_number"`
}

// User is a single account stored in the users collection.
type User struct {
	ID            primitive.ObjectID `json:"id"             bson:"_id,omitempty"`
	Email         string             `json:"email"          bson:"email"`
	FirstName     string             `json:"first_name"     bson:"first_name"`
	LastName      string             `json:"last_name"      bson:"last_name"`
	AcceptedTerms bool               `json:"accepted_terms" bson:"accepted_terms"`
	Gender        Gender             `json:"gender,omitempty" bson:"gender,omitempty"`
	Address       Address            `json:"address"        bson:"address"`
	Password      string             `json:"-"              bson:"pwd"` // never serialize
	Sales         []Summary          `json:"sales"          bson:"sales"`
	Contact       Contact            `json:"contact"        bson:"contact"`
	CreatedAt     time.Time          `json:"created_at"     bson:"created_at"`
}

// Profile is the publicly visible projection of a User.
type Profile struct {
	ID        primitive.ObjectID `json:"id"`
	Sales     []Summary          `json:"sales"`
	Contact   Contact            `json:"contact"`
	FirstName string             `json:"first_name"`
	LastName  string             `json:"last_name"`
	Gender    Gender             `json:"gender,omitempty"`
	Address   Address            `json:"address"`
}

// Profile returns the restricted view served on GET /users/{id}.
func (u *User) Profile() Profile {
	sales := u.Sales
	if sales == nil {
		sales = []Summary{}
	}
	return Profile{
		ID:        u.ID,
		Sales:     sales,
		Contact:   u.Contact,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Gender:    u.Gender,
		Address:   u.Address,
	}
}
