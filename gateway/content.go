package gateway

import (
	"errors"
	"net/http"

	"github.com/example/bakery/pkg/catalog"
	"github.com/example/bakery/pkg/models"
	"github.com/example/bakery/pkg/repository"
	"github.com/gin-gonic/gin"
)

func (g *Gateway) listBanners(c *gin.Context) {
	banners, err := g.deps.Banners.List(c.Request.Context(), true)
	if err != nil {
		g.respondError(c, err)
		return
	}
	if banners == nil {
		banners = []models.Banner{}
	}
	c.JSON(http.StatusOK, gin.H{"banners": banners})
}

func (g *Gateway) listNews(c *gin.Context) {
	g.serveNews(c, true)
}

func (g *Gateway) serveNews(c *gin.Context, publishedOnly bool) {
	page, limit := pagination(c)
	items, total, err := g.deps.News.List(c.Request.Context(), publishedOnly, skip(page, limit), int64(limit))
	if err != nil {
		g.respondError(c, err)
		return
	}
	if items == nil {
		items = []models.News{}
	}
	c.JSON(http.StatusOK, gin.H{"news": items, "pagination": catalog.NewPage(total, page, limit)})
}

func (g *Gateway) getNews(c *gin.Context) {
	item, err := g.deps.News.GetBySlug(c.Request.Context(), c.Param("slug"), true)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (g *Gateway) listAddons(c *gin.Context) {
	addons, err := g.deps.Addons.List(c.Request.Context(), true)
	if err != nil {
		g.respondError(c, err)
		return
	}
	if addons == nil {
		addons = []models.Addon{}
	}
	c.JSON(http.StatusOK, gin.H{"addons": addons})
}

func (g *Gateway) listLocations(c *gin.Context) {
	locations, err := g.deps.Locations.List(c.Request.Context(), true)
	if err != nil {
		g.respondError(c, err)
		return
	}
	if locations == nil {
		locations = []models.Location{}
	}
	c.JSON(http.StatusOK, gin.H{"locations": locations})
}

func (g *Gateway) publicSettings(c *gin.Context) {
	s, err := g.deps.Settings.Get(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Public())
}

func (g *Gateway) subscribe(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	email := models.NormalizeEmail(req.Email)

	exists, err := g.deps.Subscribers.Exists(ctx, email)
	if err != nil {
		g.respondError(c, err)
		return
	}
	if exists {
		c.JSON(http.StatusConflict, gin.H{"error": "email is already subscribed"})
		return
	}
	sub := &models.Subscriber{Email: email, CreatedAt: g.now().UTC()}
	if err := g.deps.Subscribers.Create(ctx, sub); err != nil {
		// Lost a race with a concurrent signup for the same address.
		if errors.Is(err, repository.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "email is already subscribed"})
			return
		}
		g.respondError(c, err)
		return
	}
	if g.deps.Subscriptions != nil {
		g.deps.Subscriptions.Subscribed(email)
	}
	c.JSON(http.StatusCreated, gin.H{"message": "subscribed", "email": email})
}
