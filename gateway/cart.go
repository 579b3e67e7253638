package gateway

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/example/bakery/pkg/checkout"
	"github.com/example/bakery/pkg/models"
	"github.com/example/bakery/pkg/repository"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type cartResponse struct {
	*checkout.PricedCart
	ItemCount      int  `json:"item_count"`
	HasUnavailable bool `json:"has_unavailable"`
}

type cartItemRequest struct {
	CakeID   string `json:"cake_id" binding:"required"`
	Weight   string `json:"weight" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
	Message  string `json:"message" binding:"max=60"`
}

type cartAddonRequest struct {
	AddonID  string `json:"addon_id" binding:"required"`
	Quantity int    `json:"quantity"`
}

type replaceCartRequest struct {
	Items  []cartItemRequest  `json:"items" binding:"dive"`
	Addons []cartAddonRequest `json:"addons" binding:"dive"`
}

// respondCart prices the stored cart from the live catalog.
func (g *Gateway) respondCart(c *gin.Context, userID primitive.ObjectID, status int) {
	_, priced, err := g.deps.Checkout.PriceUserCart(c.Request.Context(), userID)
	if err != nil {
		g.respondError(c, err)
		return
	}
	count := 0
	for _, it := range priced.Items {
		count += it.Quantity
	}
	c.JSON(status, cartResponse{PricedCart: priced, ItemCount: count, HasUnavailable: priced.HasUnavailable()})
}

func (g *Gateway) getCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	g.respondCart(c, userID, http.StatusOK)
}

// cartItem checks the cake and weight exist before they go into a cart.
func (g *Gateway) cartItem(c *gin.Context, req cartItemRequest) (models.CartItem, error) {
	cakeID, err := primitive.ObjectIDFromHex(req.CakeID)
	if err != nil {
		return models.CartItem{}, fmt.Errorf("%w: invalid cake_id", models.ErrInvalid)
	}
	cake, err := g.deps.Cakes.Get(c.Request.Context(), cakeID.Hex())
	if err != nil {
		return models.CartItem{}, err
	}
	if !cake.Available {
		return models.CartItem{}, fmt.Errorf("%w: %s is not available", models.ErrInvalid, cake.Name)
	}
	option, ok := cake.PriceFor(req.Weight)
	if !ok {
		return models.CartItem{}, fmt.Errorf("%w: %s is not sold in %s", models.ErrInvalid, cake.Name, req.Weight)
	}
	return models.CartItem{CakeID: cake.ID, Weight: option.Weight, Quantity: req.Quantity, Message: req.Message}, nil
}

func (g *Gateway) addCartItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req cartItemRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := g.cartItem(c, req)
	if err != nil {
		g.respondError(c, err)
		return
	}
	g.mutateCart(c, userID, http.StatusCreated, func(cart *models.Cart) error {
		return cart.AddItem(item)
	})
}

func (g *Gateway) replaceCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req replaceCartRequest
	if !bindJSON(c, &req) {
		return
	}

	items := make([]models.CartItem, 0, len(req.Items))
	for _, r := range req.Items {
		item, err := g.cartItem(c, r)
		if err != nil {
			g.respondError(c, err)
			return
		}
		items = append(items, item)
	}
	addons := make([]models.CartAddon, 0, len(req.Addons))
	for _, r := range req.Addons {
		id, err := primitive.ObjectIDFromHex(r.AddonID)
		if err != nil {
			badRequest(c, fmt.Errorf("invalid addon_id %q", r.AddonID))
			return
		}
		addons = append(addons, models.CartAddon{AddonID: id, Quantity: r.Quantity})
	}

	g.mutateCart(c, userID, http.StatusOK, func(cart *models.Cart) error {
		cart.Clear()
		for _, it := range items {
			if err := cart.AddItem(it); err != nil {
				return err
			}
		}
		for _, a := range addons {
			if err := cart.SetAddon(a.AddonID, a.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func cartIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a non-negative integer"})
		return 0, false
	}
	return index, true
}

func (g *Gateway) updateCartItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	index, ok := cartIndex(c)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	g.mutateCart(c, userID, http.StatusOK, func(cart *models.Cart) error {
		return cart.SetItemQuantity(index, req.Quantity)
	})
}

func (g *Gateway) removeCartItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	index, ok := cartIndex(c)
	if !ok {
		return
	}
	g.mutateCart(c, userID, http.StatusOK, func(cart *models.Cart) error {
		return cart.RemoveItem(index)
	})
}

func (g *Gateway) setCartAddon(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req cartAddonRequest
	if !bindJSON(c, &req) {
		return
	}
	addonID, err := repository.ParseID(req.AddonID)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid addon_id %q", req.AddonID))
		return
	}
	g.mutateCart(c, userID, http.StatusOK, func(cart *models.Cart) error {
		return cart.SetAddon(addonID, req.Quantity)
	})
}

func (g *Gateway) clearCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := g.deps.Carts.Clear(c.Request.Context(), userID); err != nil {
		g.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (g *Gateway) mutateCart(c *gin.Context, userID primitive.ObjectID, status int, mutate func(*models.Cart) error) {
	ctx := c.Request.Context()
	cart, err := g.deps.Carts.Get(ctx, userID)
	if err != nil {
		g.respondError(c, err)
		return
	}
	if err := mutate(cart); err != nil {
		g.respondError(c, err)
		return
	}
	cart.UserID = userID
	if err := g.deps.Carts.Save(ctx, cart); err != nil {
		g.respondError(c, err)
		return
	}
	g.respondCart(c, userID, status)
}
