package gateway

import (
	"net/http"
	"strings"

	"github.com/example/bakery/pkg/catalog"
	"github.com/example/bakery/pkg/models"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type profileRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Phone   string `json:"phone" binding:"max=20"`
	Picture string `json:"picture" binding:"omitempty,url"`
}

func (g *Gateway) loadUser(c *gin.Context) (*models.User, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	user, err := g.deps.Users.Get(c.Request.Context(), userID)
	if err != nil {
		g.respondError(c, err)
		return nil, false
	}
	return user, true
}

func (g *Gateway) getMe(c *gin.Context) {
	user, ok := g.loadUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}

func (g *Gateway) updateMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := g.deps.Users.UpdateProfile(c.Request.Context(), userID,
		strings.TrimSpace(req.Name), strings.TrimSpace(req.Phone), strings.TrimSpace(req.Picture))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func addressList(u *models.User) []models.Address {
	if u.Addresses == nil {
		return []models.Address{}
	}
	return u.Addresses
}

func (g *Gateway) listAddresses(c *gin.Context) {
	user, ok := g.loadUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addressList(user)})
}

// editAddresses applies fn to the user's address book and persists it.
func (g *Gateway) editAddresses(c *gin.Context, status int, fn func(*models.User) (any, error)) {
	user, ok := g.loadUser(c)
	if !ok {
		return
	}
	out, err := fn(user)
	if err != nil {
		g.respondError(c, err)
		return
	}
	if err := g.deps.Users.SaveAddresses(c.Request.Context(), user); err != nil {
		g.respondError(c, err)
		return
	}
	if out == nil {
		out = gin.H{"addresses": addressList(user)}
	}
	c.JSON(status, out)
}

func (g *Gateway) addAddress(c *gin.Context) {
	var addr models.Address
	if !bindJSON(c, &addr) {
		return
	}
	addr.ID = primitive.NilObjectID
	g.editAddresses(c, http.StatusCreated, func(u *models.User) (any, error) {
		return u.AddAddress(addr)
	})
}

func (g *Gateway) updateAddress(c *gin.Context) {
	id, ok := g.paramID(c, "id")
	if !ok {
		return
	}
	var addr models.Address
	if !bindJSON(c, &addr) {
		return
	}
	g.editAddresses(c, http.StatusOK, func(u *models.User) (any, error) {
		return u.UpdateAddress(id, addr)
	})
}

func (g *Gateway) removeAddress(c *gin.Context) {
	id, ok := g.paramID(c, "id")
	if !ok {
		return
	}
	g.editAddresses(c, http.StatusOK, func(u *models.User) (any, error) {
		return nil, u.RemoveAddress(id)
	})
}

func (g *Gateway) defaultAddress(c *gin.Context) {
	id, ok := g.paramID(c, "id")
	if !ok {
		return
	}
	g.editAddresses(c, http.StatusOK, func(u *models.User) (any, error) {
		return nil, u.SetDefaultAddress(id)
	})
}

func (g *Gateway) getWishlist(c *gin.Context) {
	user, ok := g.loadUser(c)
	if !ok {
		return
	}
	cakes := []models.Cake{}
	if len(user.Wishlist) > 0 {
		byID, err := g.deps.Cakes.GetByIDs(c.Request.Context(), user.Wishlist)
		if err != nil {
			g.respondError(c, err)
			return
		}
		// Keep the order the cakes were saved in; deleted cakes drop out.
		for _, id := range user.Wishlist {
			if cake, ok := byID[id]; ok {
				cakes = append(cakes, cake)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"cakes": cakes})
}

func (g *Gateway) addWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	cake, err := g.deps.Cakes.Get(ctx, c.Param("cakeId"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	if err := g.deps.Users.AddToWishlist(ctx, userID, cake.ID); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cake_id": cake.ID, "wishlisted": true})
}

func (g *Gateway) removeWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	cakeID, ok := g.paramID(c, "cakeId")
	if !ok {
		return
	}
	if err := g.deps.Users.RemoveFromWishlist(c.Request.Context(), userID, cakeID); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cake_id": cakeID, "wishlisted": false})
}

func (g *Gateway) myOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	page, limit := pagination(c)
	orders, total, err := g.deps.Orders.ListForUser(c.Request.Context(), userID, skip(page, limit), int64(limit))
	if err != nil {
		g.respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "pagination": catalog.NewPage(total, page, limit)})
}

func (g *Gateway) myOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := g.paramID(c, "id")
	if !ok {
		return
	}
	order, err := g.deps.Orders.GetForUser(c.Request.Context(), id, userID)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) cancelOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := g.paramID(c, "id")
	if !ok {
		return
	}
	order, err := g.deps.Checkout.Cancel(c.Request.Context(), userID, id)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
