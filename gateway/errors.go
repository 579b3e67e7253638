package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/example/bakery/pkg/auth"
	"github.com/example/bakery/pkg/catalog"
	"github.com/example/bakery/pkg/checkout"
	"github.com/example/bakery/pkg/delivery"
	"github.com/example/bakery/pkg/models"
	"github.com/example/bakery/pkg/payment"
	"github.com/example/bakery/pkg/repository"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// respondError maps domain and repository errors to a status and writes
// {"error": ...}. Anything unrecognised is logged and hidden behind a 500.
func (g *Gateway) respondError(c *gin.Context, err error) {
	var verr *checkout.ValidationError
	var maxErr *http.MaxBytesError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, verr)
	case errors.As(err, &maxErr):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, models.ErrAddressNotFound),
		errors.Is(err, models.ErrCartItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, models.ErrAlreadyReviewed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalid),
		errors.Is(err, catalog.ErrInvalidQuery),
		errors.Is(err, delivery.ErrMissingAddress),
		errors.Is(err, payment.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrBadCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		g.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
	_ = c.Error(err)
}

func badRequest(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// bindJSON decodes the body, answering 400 itself on failure.
func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

func (g *Gateway) paramID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := repository.ParseID(c.Param(name))
	if err != nil {
		g.respondError(c, err)
		return primitive.NilObjectID, false
	}
	return id, true
}

func currentUser(c *gin.Context) (primitive.ObjectID, bool) {
	id, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
	}
	return id, ok
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pagination reads page and limit, clamping rather than rejecting.
func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.Query("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func skip(page, limit int) int64 {
	return int64(page-1) * int64(limit)
}

// parseBodyID parses an id sent in a request body, where a malformed
// value is a client error rather than a missing document.
func parseBodyID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid id %q", models.ErrInvalid, hex)
	}
	return id, nil
}
