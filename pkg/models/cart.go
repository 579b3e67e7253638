package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MaxItemQuantity = 20

var ErrCartItemNotFound = errors.New("cart item not found")

type CartItem struct {
	CakeID   primitive.ObjectID `bson:"cake_id" json:"cake_id"`
	Weight   string             `bson:"weight" json:"weight"`
	Quantity int                `bson:"quantity" json:"quantity"`
	Message  string             `bson:"message" json:"message"`
}

type CartAddon struct {
	AddonID  primitive.ObjectID `bson:"addon_id" json:"addon_id"`
	Quantity int                `bson:"quantity" json:"quantity"`
}

type Cart struct {
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Items     []CartItem         `bson:"items" json:"items"`
	Addons    []CartAddon        `bson:"addons" json:"addons"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

func validQuantity(q int) error {
	if q < 1 || q > MaxItemQuantity {
		return fmt.Errorf("%w: quantity must be between 1 and %d", ErrInvalid, MaxItemQuantity)
	}
	return nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// AddItem adds a line, merging it into an existing line with the same
// cake, weight and message.
func (c *Cart) AddItem(item CartItem) error {
	if err := validQuantity(item.Quantity); err != nil {
		return err
	}
	if item.CakeID.IsZero() || strings.TrimSpace(item.Weight) == "" {
		return fmt.Errorf("%w: cake_id and weight are required", ErrInvalid)
	}
	item.Message = strings.TrimSpace(item.Message)
	for i := range c.Items {
		existing := &c.Items[i]
		if existing.CakeID == item.CakeID && strings.EqualFold(existing.Weight, item.Weight) && existing.Message == item.Message {
			if err := validQuantity(existing.Quantity + item.Quantity); err != nil {
				return err
			}
			existing.Quantity += item.Quantity
			return nil
		}
	}
	c.Items = append(c.Items, item)
	return nil
}

func (c *Cart) SetItemQuantity(index, quantity int) error {
	if index < 0 || index >= len(c.Items) {
		return ErrCartItemNotFound
	}
	if err := validQuantity(quantity); err != nil {
		return err
	}
	c.Items[index].Quantity = quantity
	return nil
}

func (c *Cart) RemoveItem(index int) error {
	if index < 0 || index >= len(c.Items) {
		return ErrCartItemNotFound
	}
	c.Items = append(c.Items[:index], c.Items[index+1:]...)
	return nil
}

// SetAddon sets the quantity of an addon; zero removes it.
func (c *Cart) SetAddon(addonID primitive.ObjectID, quantity int) error {
	if quantity < 0 || quantity > MaxItemQuantity {
		return fmt.Errorf("%w: addon quantity must be between 0 and %d", ErrInvalid, MaxItemQuantity)
	}
	for i := range c.Addons {
		if c.Addons[i].AddonID == addonID {
			if quantity == 0 {
				c.Addons = append(c.Addons[:i], c.Addons[i+1:]...)
			} else {
				c.Addons[i].Quantity = quantity
			}
			return nil
		}
	}
	if quantity > 0 {
		c.Addons = append(c.Addons, CartAddon{AddonID: addonID, Quantity: quantity})
	}
	return nil
}

func (c *Cart) Clear() {
	c.Items = nil
	c.Addons = nil
}
