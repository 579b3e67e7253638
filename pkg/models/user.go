package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var ErrAddressNotFound = errors.New("address not found")

type Address struct {
	ID        primitive.ObjectID `bson:"id" json:"id"`
	Label     string             `bson:"label" json:"label"`
	Name      string             `bson:"name" json:"name"`
	Phone     string             `bson:"phone" json:"phone"`
	Line1     string             `bson:"line1" json:"line1"`
	Line2     string             `bson:"line2" json:"line2"`
	City      string             `bson:"city" json:"city"`
	State     string             `bson:"state" json:"state"`
	Pincode   string             `bson:"pincode" json:"pincode"`
	Lat       float64            `bson:"lat" json:"lat"`
	Lng       float64            `bson:"lng" json:"lng"`
	IsDefault bool               `bson:"is_default" json:"is_default"`
}

func (a *Address) Validate() error {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return fmt.Errorf("%w: address name is required", ErrInvalid)
	case strings.TrimSpace(a.Phone) == "":
		return fmt.Errorf("%w: address phone is required", ErrInvalid)
	case strings.TrimSpace(a.Line1) == "":
		return fmt.Errorf("%w: address line1 is required", ErrInvalid)
	case strings.TrimSpace(a.City) == "":
		return fmt.Errorf("%w: address city is required", ErrInvalid)
	case strings.TrimSpace(a.Pincode) == "":
		return fmt.Errorf("%w: address pincode is required", ErrInvalid)
	}
	return nil
}

// HasCoordinates reports whether the address carries a geocoded point.
func (a *Address) HasCoordinates() bool {
	return a.Lat != 0 || a.Lng != 0
}

type User struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string               `bson:"name" json:"name"`
	Email     string               `bson:"email" json:"email"`
	Phone     string               `bson:"phone" json:"phone"`
	Picture   string               `bson:"picture" json:"picture"`
	Provider  string               `bson:"provider" json:"provider"`
	Subject   string               `bson:"subject" json:"-"`
	Role      string               `bson:"role" json:"role"`
	Addresses []Address            `bson:"addresses" json:"addresses"`
	Wishlist  []primitive.ObjectID `bson:"wishlist" json:"wishlist"`
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at" json:"updated_at"`
}

// AddAddress stores a new address. The first address, or one flagged as
// default, becomes the only default.
func (u *User) AddAddress(a Address) (Address, error) {
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if len(u.Addresses) == 0 {
		a.IsDefault = true
	}
	if a.IsDefault {
		u.clearDefault()
	}
	u.Addresses = append(u.Addresses, a)
	return a, nil
}

// UpdateAddress replaces the fields of an existing address. The default
// flag can only be gained here, never dropped.
func (u *User) UpdateAddress(id primitive.ObjectID, a Address) (Address, error) {
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	i := u.addressIndex(id)
	if i < 0 {
		return Address{}, ErrAddressNotFound
	}
	a.ID = id
	wasDefault := u.Addresses[i].IsDefault
	if a.IsDefault && !wasDefault {
		u.clearDefault()
	}
	a.IsDefault = a.IsDefault || wasDefault
	u.Addresses[i] = a
	return a, nil
}

// RemoveAddress deletes an address, promoting the first remaining one
// when the default was removed.
func (u *User) RemoveAddress(id primitive.ObjectID) error {
	i := u.addressIndex(id)
	if i < 0 {
		return ErrAddressNotFound
	}
	wasDefault := u.Addresses[i].IsDefault
	u.Addresses = append(u.Addresses[:i], u.Addresses[i+1:]...)
	if wasDefault && len(u.Addresses) > 0 {
		u.Addresses[0].IsDefault = true
	}
	return nil
}

func (u *User) SetDefaultAddress(id primitive.ObjectID) error {
	i := u.addressIndex(id)
	if i < 0 {
		return ErrAddressNotFound
	}
	u.clearDefault()
	u.Addresses[i].IsDefault = true
	return nil
}

func (u *User) Address(id primitive.ObjectID) (Address, bool) {
	i := u.addressIndex(id)
	if i < 0 {
		return Address{}, false
	}
	return u.Addresses[i], true
}

func (u *User) DefaultAddress() (Address, bool) {
	for _, a := range u.Addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return Address{}, false
}

func (u *User) addressIndex(id primitive.ObjectID) int {
	for i := range u.Addresses {
		if u.Addresses[i].ID == id {
			return i
		}
	}
	return -1
}

func (u *User) clearDefault() {
	for i := range u.Addresses {
		u.Addresses[i].IsDefault = false
	}
}

// Admin is a back-office account that signs in with a password.
type Admin struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	Name         string             `bson:"name" json:"name"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
