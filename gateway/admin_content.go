package gateway

import (
	"net/http"

	"github.com/example/bakery/pkg/catalog"
	"github.com/example/bakery/pkg/models"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (g *Gateway) adminListLocations(c *gin.Context) {
	locations, err := g.deps.Locations.List(c.Request.Context(), false)
	if err != nil {
		g.respondError(c, err)
		return
	}
	listOf(c, "locations", locations)
}

func (g *Gateway) createLocation(c *gin.Context) {
	createDocument[models.Location](g, c, "location", g.deps.Locations.Create,
		func(l *models.Location) primitive.ObjectID { return l.ID })
}

func (g *Gateway) updateLocation(c *gin.Context) {
	updateDocument[models.Location](g, c, "location", g.deps.Locations.Update)
}

func (g *Gateway) deleteLocation(c *gin.Context) {
	deleteDocument(g, c, "location", g.deps.Locations.Delete)
}

func (g *Gateway) adminListBanners(c *gin.Context) {
	banners, err := g.deps.Banners.List(c.Request.Context(), false)
	if err != nil {
		g.respondError(c, err)
		return
	}
	listOf(c, "banners", banners)
}

func (g *Gateway) createBanner(c *gin.Context) {
	createDocument[models.Banner](g, c, "banner", g.deps.Banners.Create,
		func(b *models.Banner) primitive.ObjectID { return b.ID })
}

func (g *Gateway) updateBanner(c *gin.Context) {
	updateDocument[models.Banner](g, c, "banner", g.deps.Banners.Update)
}

func (g *Gateway) deleteBanner(c *gin.Context) {
	deleteDocument(g, c, "banner", g.deps.Banners.Delete)
}

func (g *Gateway) adminListNews(c *gin.Context) {
	g.serveNews(c, false)
}

func (g *Gateway) createNews(c *gin.Context) {
	createDocument[models.News](g, c, "news", g.deps.News.Create,
		func(n *models.News) primitive.ObjectID { return n.ID })
}

func (g *Gateway) updateNews(c *gin.Context) {
	updateDocument[models.News](g, c, "news", g.deps.News.Update)
}

func (g *Gateway) deleteNews(c *gin.Context) {
	deleteDocument(g, c, "news", g.deps.News.Delete)
}

func (g *Gateway) listCoupons(c *gin.Context) {
	coupons, err := g.deps.Coupons.List(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	listOf(c, "coupons", coupons)
}

func (g *Gateway) createCoupon(c *gin.Context) {
	createDocument[models.Coupon](g, c, "coupon", g.deps.Coupons.Create,
		func(cp *models.Coupon) primitive.ObjectID { return cp.ID })
}

func (g *Gateway) updateCoupon(c *gin.Context) {
	updateDocument[models.Coupon](g, c, "coupon", g.deps.Coupons.Update)
}

func (g *Gateway) deleteCoupon(c *gin.Context) {
	deleteDocument(g, c, "coupon", g.deps.Coupons.Delete)
}

func (g *Gateway) getSettings(c *gin.Context) {
	s, err := g.deps.Settings.Get(c.Request.Context())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (g *Gateway) putSettings(c *gin.Context) {
	var s models.Settings
	if !bindJSON(c, &s) {
		return
	}
	if err := s.Validate(); err != nil {
		g.respondError(c, err)
		return
	}
	if err := g.deps.Settings.Put(c.Request.Context(), &s); err != nil {
		g.respondError(c, err)
		return
	}
	g.audit(c, "settings.update", models.SettingsID, auditData(
		"store_open", s.StoreOpen, "cod_enabled", s.CODEnabled, "delivery_charge", s.DeliveryCharge))
	c.JSON(http.StatusOK, s)
}

func (g *Gateway) listUsers(c *gin.Context) {
	page, limit := pagination(c)
	users, total, err := g.deps.Users.List(c.Request.Context(), skip(page, limit), int64(limit))
	if err != nil {
		g.respondError(c, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "pagination": catalog.NewPage(total, page, limit)})
}

func (g *Gateway) listSubscribers(c *gin.Context) {
	page, limit := pagination(c)
	subs, total, err := g.deps.Subscribers.List(c.Request.Context(), skip(page, limit), int64(limit))
	if err != nil {
		g.respondError(c, err)
		return
	}
	if subs == nil {
		subs = []models.Subscriber{}
	}
	c.JSON(http.StatusOK, gin.H{"subscribers": subs, "pagination": catalog.NewPage(total, page, limit)})
}

func (g *Gateway) deleteSubscriber(c *gin.Context) {
	deleteDocument(g, c, "subscriber", g.deps.Subscribers.Delete)
}
