package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/example/bakery/pkg/catalog"
	"github.com/example/bakery/pkg/models"
	"github.com/example/bakery/pkg/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultFeatured = 8

func (g *Gateway) listCakes(c *gin.Context) {
	q, err := catalog.ParseQuery(c.Request.URL.Query())
	if err != nil {
		g.respondError(c, err)
		return
	}
	g.serveListing(c, q)
}

// searchCakes is listCakes with q as the search term.
func (g *Gateway) searchCakes(c *gin.Context) {
	g.listCakes(c)
}

func (g *Gateway) categoryCakes(c *gin.Context) {
	category, err := g.deps.Categories.Get(c.Request.Context(), c.Param("slug"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	q, err := catalog.ParseQuery(c.Request.URL.Query())
	if err != nil {
		g.respondError(c, err)
		return
	}
	q.Category = category.Slug
	q.CategoryID = category.ID
	g.serveListing(c, q)
}

func (g *Gateway) serveListing(c *gin.Context, q catalog.Query) {
	ctx := c.Request.Context()

	if q.Category != "" && q.CategoryID.IsZero() {
		category, err := g.deps.Categories.Get(ctx, q.Category)
		if errors.Is(err, repository.ErrNotFound) {
			// An unknown category matches nothing.
			c.JSON(http.StatusOK, catalog.Listing{Cakes: []models.Cake{}, Pagination: catalog.NewPage(0, q.Page, q.PageSize)})
			return
		}
		if err != nil {
			g.respondError(c, err)
			return
		}
		q.CategoryID = category.ID
	}

	listing, err := g.cachedListing(ctx, q)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (g *Gateway) cachedListing(ctx context.Context, q catalog.Query) (*catalog.Listing, error) {
	key := q.CacheKey()
	if g.deps.Cache != nil {
		var cached catalog.Listing
		err := g.deps.Cache.GetCatalogPage(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			g.logger.Warn("Catalog cache read failed", zap.Error(err))
		}
	}

	cakes, total, err := g.deps.Cakes.List(ctx, q.Filter(), q.Sort(), q.Skip(), q.Limit())
	if err != nil {
		return nil, err
	}
	if cakes == nil {
		cakes = []models.Cake{}
	}
	listing := &catalog.Listing{Cakes: cakes, Pagination: catalog.NewPage(total, q.Page, q.PageSize)}

	if g.deps.Cache != nil {
		ttl := g.config.Store.CatalogCacheTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		if err := g.deps.Cache.SetCatalogPage(ctx, key, listing, ttl); err != nil {
			g.logger.Warn("Catalog cache write failed", zap.Error(err))
		}
	}
	return listing, nil
}

// invalidateCatalog drops every cached listing after a cake write.
func (g *Gateway) invalidateCatalog(ctx context.Context) {
	if g.deps.Cache == nil {
		return
	}
	if err := g.deps.Cache.BumpCatalogVersion(ctx); err != nil {
		g.logger.Warn("Failed to invalidate catalog cache", zap.Error(err))
	}
}

func (g *Gateway) featuredCakes(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(defaultFeatured)), 10, 64)
	if err != nil || limit < 1 || limit > catalog.MaxLimit {
		limit = defaultFeatured
	}
	cakes, err := g.deps.Cakes.Featured(c.Request.Context(), limit)
	if err != nil {
		g.respondError(c, err)
		return
	}
	if cakes == nil {
		cakes = []models.Cake{}
	}
	c.JSON(http.StatusOK, gin.H{"cakes": cakes})
}

func (g *Gateway) getCake(c *gin.Context) {
	cake, err := g.deps.Cakes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cake)
}

func (g *Gateway) listCategories(c *gin.Context) {
	categories, err := g.deps.Categories.List(c.Request.Context(), true)
	if err != nil {
		g.respondError(c, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment" binding:"max=1000"`
}

func (g *Gateway) addReview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	cake, err := g.deps.Cakes.Get(ctx, c.Param("id"))
	if err != nil {
		g.respondError(c, err)
		return
	}
	user, err := g.deps.Users.Get(ctx, userID)
	if err != nil {
		g.respondError(c, err)
		return
	}

	updated, err := g.deps.Cakes.AddReview(ctx, cake.ID, models.Review{
		UserID:    userID,
		Name:      user.Name,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: g.now().UTC(),
	})
	if err != nil {
		g.respondError(c, err)
		return
	}
	g.invalidateCatalog(ctx)
	c.JSON(http.StatusCreated, gin.H{
		"average_rating": updated.AverageRating,
		"review_count":   updated.ReviewCount,
	})
}
