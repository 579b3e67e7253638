package gateway

import (
	"io"
	"net/http"
	"strings"

	"github.com/example/bakery/pkg/checkout"
	"github.com/example/bakery/pkg/delivery"
	"github.com/gin-gonic/gin"
)

const (
	idempotencyHeader = "Idempotency-Key"
	signatureHeader   = "X-Razorpay-Signature"
	maxIdempotencyKey = 128
)

func (g *Gateway) quote(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req struct {
		CouponCode string `json:"coupon_code"`
	}
	// The body is optional.
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	q, err := g.deps.Checkout.Quote(c.Request.Context(), userID, req.CouponCode)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

type applyCouponRequest struct {
	Code     string  `json:"code" binding:"required"`
	Subtotal float64 `json:"subtotal" binding:"gte=0"`
}

func (g *Gateway) applyCoupon(c *gin.Context) {
	var req applyCouponRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := g.deps.Checkout.ApplyCoupon(c.Request.Context(), req.Code, req.Subtotal)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (g *Gateway) checkDelivery(c *gin.Context) {
	var req delivery.Request
	if !bindJSON(c, &req) {
		return
	}
	req.Pincode = strings.TrimSpace(req.Pincode)
	res, err := g.deps.Delivery.Check(c.Request.Context(), req)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (g *Gateway) placeOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req checkout.PlaceOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = strings.TrimSpace(c.GetHeader(idempotencyHeader))
	if len(req.IdempotencyKey) > maxIdempotencyKey {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key is too long"})
		return
	}

	placement, err := g.deps.Checkout.PlaceOrder(c.Request.Context(), userID, req)
	if err != nil {
		g.respondError(c, err)
		return
	}
	status := http.StatusCreated
	if placement.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, placement)
}

func (g *Gateway) createPayment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req struct {
		OrderID string `json:"order_id" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	orderID, err := parseBodyID(req.OrderID)
	if err != nil {
		g.respondError(c, err)
		return
	}
	gw, err := g.deps.Checkout.CreatePayment(c.Request.Context(), userID, orderID)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": gw})
}

func (g *Gateway) verifyPayment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req checkout.VerifyRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := g.deps.Checkout.Verify(c.Request.Context(), userID, req)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true, "order": order})
}

// paymentWebhook needs the raw body since the signature covers its bytes.
func (g *Gateway) paymentWebhook(c *gin.Context) {
	signature := c.GetHeader(signatureHeader)
	if signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing " + signatureHeader + " header"})
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := g.deps.Checkout.Webhook(c.Request.Context(), body, signature); err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
