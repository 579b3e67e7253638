package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/example/bakery/pkg/auth"
	"github.com/example/bakery/pkg/catalog"
	"github.com/example/bakery/pkg/models"
	"github.com/example/bakery/pkg/repository"
	"github.com/gin-gonic/gin"
)

const (
	dateLayout        = "2006-01-02"
	defaultStatsRange = 30
)

// parseDay reads a YYYY-MM-DD bound as local midnight. The upper bound is
// inclusive, so it moves to the start of the following day.
func parseDay(raw string, loc *time.Location, upper bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	day, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: dates must be YYYY-MM-DD, got %q", models.ErrInvalid, raw)
	}
	if upper {
		day = day.AddDate(0, 0, 1)
	}
	return day, nil
}

func (g *Gateway) dateRange(c *gin.Context) (from, to time.Time, err error) {
	loc := g.config.Store.Location()
	if from, err = parseDay(c.Query("from"), loc, false); err != nil {
		return
	}
	if to, err = parseDay(c.Query("to"), loc, true); err != nil {
		return
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		err = fmt.Errorf("%w: from must not be after to", models.ErrInvalid)
	}
	return
}

func (g *Gateway) adminListOrders(c *gin.Context) {
	var f repository.OrderFilter
	var err error
	if raw := c.Query("status"); raw != "" {
		if f.Status, err = models.ParseOrderStatus(raw); err != nil {
			g.respondError(c, err)
			return
		}
	}
	if raw := c.Query("payment_status"); raw != "" {
		if f.PaymentStatus, err = models.ParsePaymentStatus(raw); err != nil {
			g.respondError(c, err)
			return
		}
	}
	if f.From, f.To, err = g.dateRange(c); err != nil {
		g.respondError(c, err)
		return
	}

	page, limit := pagination(c)
	orders, total, err := g.deps.Orders.List(c.Request.Context(), f, skip(page, limit), int64(limit))
	if err != nil {
		g.respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "pagination": catalog.NewPage(total, page, limit)})
}

func (g *Gateway) adminGetOrder(c *gin.Context) {
	id, ok := g.paramID(c, "id")
	if !ok {
		return
	}
	order, err := g.deps.Orders.Get(c.Request.Context(), id)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	id, ok := g.paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	to, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		g.respondError(c, err)
		return
	}

	by := "admin"
	if claims := auth.ClaimsFrom(c); claims != nil && claims.Email != "" {
		by = claims.Email
	}
	order, err := g.deps.Checkout.Advance(c.Request.Context(), id, to, by)
	if err != nil {
		g.respondError(c, err)
		return
	}
	g.audit(c, "order.status", id.Hex(), auditData("status", string(to), "order_number", order.OrderNumber))
	c.JSON(http.StatusOK, order)
}

// orderPayments lists the ledger rows for an order, oldest first.
func (g *Gateway) orderPayments(c *gin.Context) {
	id, ok := g.paramID(c, "id")
	if !ok {
		return
	}
	if g.deps.Ledger == nil {
		listOf(c, "transactions", []models.PaymentTransaction(nil))
		return
	}
	txs, err := g.deps.Ledger.ForOrder(c.Request.Context(), id.Hex())
	if err != nil {
		g.respondError(c, err)
		return
	}
	listOf(c, "transactions", txs)
}

func (g *Gateway) stats(c *gin.Context) {
	from, to, err := g.dateRange(c)
	if err != nil {
		g.respondError(c, err)
		return
	}
	if from.IsZero() && to.IsZero() {
		now := g.now().In(g.config.Store.Location())
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		to = today.AddDate(0, 0, 1)
		from = to.AddDate(0, 0, -defaultStatsRange)
	}

	tz := g.config.Store.Location().String()
	stats, err := g.deps.Orders.Stats(c.Request.Context(), from, to, tz)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": from, "to": to, "timezone": tz, "stats": stats})
}

func (g *Gateway) listInstances(c *gin.Context) {
	if g.deps.Instances == nil {
		c.JSON(http.StatusOK, gin.H{"instances": []any{}, "registry": "disabled"})
		return
	}
	instances, err := g.deps.Instances.Discover(c.Request.Context(), g.config.Server.Name)
	if err != nil {
		g.respondError(c, err)
		return
	}
	listOf(c, "instances", instances)
}
