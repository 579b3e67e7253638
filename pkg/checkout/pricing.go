package checkout

import (
	"math"

	"github.com/example/bakery/pkg/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Line is a cart item priced from the current catalog.
type Line struct {
	Index     int                `json:"index"`
	CakeID    primitive.ObjectID `json:"cake_id"`
	Name      string             `json:"name"`
	Slug      string             `json:"slug"`
	Image     string             `json:"image"`
	Weight    string             `json:"weight"`
	Message   string             `json:"message"`
	UnitPrice float64            `json:"unit_price"`
	Quantity  int                `json:"quantity"`
	LineTotal float64            `json:"line_total"`
	// Unavailable lines are kept in the cart but excluded from totals.
	Unavailable bool   `json:"unavailable"`
	Reason      string `json:"reason,omitempty"`
}

type AddonLine struct {
	AddonID     primitive.ObjectID `json:"addon_id"`
	Name        string             `json:"name"`
	UnitPrice   float64            `json:"unit_price"`
	Quantity    int                `json:"quantity"`
	LineTotal   float64            `json:"line_total"`
	Unavailable bool               `json:"unavailable"`
}

// PricedCart is a cart with catalog prices applied.
type PricedCart struct {
	Items       []Line      `json:"items"`
	Addons      []AddonLine `json:"addons"`
	Subtotal    float64     `json:"subtotal"`
	AddonsTotal float64     `json:"addons_total"`
}

// HasUnavailable reports whether any line can no longer be bought.
func (p *PricedCart) HasUnavailable() bool {
	for _, l := range p.Items {
		if l.Unavailable {
			return true
		}
	}
	for _, a := range p.Addons {
		if a.Unavailable {
			return true
		}
	}
	return false
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PriceCart prices every cart line from the catalog. Client supplied prices
// never enter the calculation.
func PriceCart(cart *models.Cart, cakes map[primitive.ObjectID]models.Cake, addons map[primitive.ObjectID]models.Addon) *PricedCart {
	out := &PricedCart{Items: []Line{}, Addons: []AddonLine{}}

	for i, item := range cart.Items {
		line := Line{Index: i, CakeID: item.CakeID, Weight: item.Weight, Message: item.Message, Quantity: item.Quantity}
		cake, ok := cakes[item.CakeID]
		switch {
		case !ok:
			line.Unavailable, line.Reason = true, "cake no longer exists"
		case !cake.Available:
			line.Name, line.Slug = cake.Name, cake.Slug
			line.Unavailable, line.Reason = true, "cake is not available"
		default:
			line.Name, line.Slug = cake.Name, cake.Slug
			if len(cake.Images) > 0 {
				line.Image = cake.Images[0]
			}
			price, found := cake.PriceFor(item.Weight)
			if !found {
				line.Unavailable, line.Reason = true, "weight is no longer offered"
				break
			}
			line.UnitPrice = price.SellPrice
			line.LineTotal = Round2(price.SellPrice * float64(item.Quantity))
			out.Subtotal += line.LineTotal
		}
		out.Items = append(out.Items, line)
	}

	for _, a := range cart.Addons {
		line := AddonLine{AddonID: a.AddonID, Quantity: a.Quantity}
		addon, ok := addons[a.AddonID]
		if !ok || !addon.Available {
			line.Unavailable = true
			if ok {
				line.Name = addon.Name
			}
		} else {
			line.Name = addon.Name
			line.UnitPrice = addon.Price
			line.LineTotal = Round2(addon.Price * float64(a.Quantity))
			out.AddonsTotal += line.LineTotal
		}
		out.Addons = append(out.Addons, line)
	}

	out.Subtotal = Round2(out.Subtotal)
	out.AddonsTotal = Round2(out.AddonsTotal)
	return out
}

// DeliveryCharge is waived once the subtotal reaches the free delivery
// threshold; a zero threshold disables the waiver.
func DeliveryCharge(s *models.Settings, subtotal float64) float64 {
	if s.FreeDeliveryAbove > 0 && subtotal >= s.FreeDeliveryAbove {
		return 0
	}
	return s.DeliveryCharge
}

func ComputeTotals(subtotal, addonsTotal, discount, delivery float64) models.Totals {
	return models.Totals{
		Subtotal:       Round2(subtotal),
		AddonsTotal:    Round2(addonsTotal),
		Discount:       Round2(discount),
		DeliveryCharge: Round2(delivery),
		Total:          Round2(subtotal + addonsTotal - discount + delivery),
	}
}
