package models

import (
	"fmt"
	"time"
)

const SettingsID = "store"

// Settings is the single store-wide configuration document.
type Settings struct {
	ID                string    `bson:"_id" json:"-"`
	DeliveryCharge    float64   `bson:"delivery_charge" json:"delivery_charge"`
	FreeDeliveryAbove float64   `bson:"free_delivery_above" json:"free_delivery_above"`
	MinOrderValue     float64   `bson:"min_order_value" json:"min_order_value"`
	CODEnabled        bool      `bson:"cod_enabled" json:"cod_enabled"`
	DeliverySlots     []string  `bson:"delivery_slots" json:"delivery_slots"`
	SameDayCutoffHour int       `bson:"same_day_cutoff_hour" json:"same_day_cutoff_hour"`
	StoreOpen         bool      `bson:"store_open" json:"store_open"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}

func DefaultSettings() Settings {
	return Settings{
		ID:                SettingsID,
		DeliveryCharge:    50,
		FreeDeliveryAbove: 999,
		MinOrderValue:     0,
		CODEnabled:        true,
		DeliverySlots:     []string{"09:00-12:00", "12:00-15:00", "15:00-18:00", "18:00-21:00"},
		SameDayCutoffHour: 14,
		StoreOpen:         true,
	}
}

func (s *Settings) Validate() error {
	if s.DeliveryCharge < 0 || s.FreeDeliveryAbove < 0 || s.MinOrderValue < 0 {
		return fmt.Errorf("%w: charges cannot be negative", ErrInvalid)
	}
	if s.SameDayCutoffHour < 0 || s.SameDayCutoffHour > 24 {
		return fmt.Errorf("%w: same_day_cutoff_hour must be between 0 and 24", ErrInvalid)
	}
	if len(s.DeliverySlots) == 0 {
		return fmt.Errorf("%w: at least one delivery slot is required", ErrInvalid)
	}
	s.ID = SettingsID
	return nil
}

// PublicSettings is the subset the storefront may read without auth.
type PublicSettings struct {
	DeliveryCharge    float64  `json:"delivery_charge"`
	FreeDeliveryAbove float64  `json:"free_delivery_above"`
	MinOrderValue     float64  `json:"min_order_value"`
	CODEnabled        bool     `json:"cod_enabled"`
	DeliverySlots     []string `json:"delivery_slots"`
	SameDayCutoffHour int      `json:"same_day_cutoff_hour"`
	StoreOpen         bool     `json:"store_open"`
}

func (s Settings) Public() PublicSettings {
	return PublicSettings{
		DeliveryCharge:    s.DeliveryCharge,
		FreeDeliveryAbove: s.FreeDeliveryAbove,
		MinOrderValue:     s.MinOrderValue,
		CODEnabled:        s.CODEnabled,
		DeliverySlots:     s.DeliverySlots,
		SameDayCutoffHour: s.SameDayCutoffHour,
		StoreOpen:         s.StoreOpen,
	}
}
