package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/example/bakery/pkg/catalog"
	"github.com/example/bakery/pkg/models"
	"github.com/example/bakery/pkg/repository"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (g *Gateway) adminListCakes(c *gin.Context) {
	q, err := catalog.ParseQuery(c.Request.URL.Query())
	if err != nil {
		g.respondError(c, err)
		return
	}
	if q.Category != "" {
		category, err := g.deps.Categories.Get(c.Request.Context(), q.Category)
		if err != nil {
			g.respondError(c, err)
			return
		}
		q.CategoryID = category.ID
	}
	cakes, total, err := g.deps.Cakes.List(c.Request.Context(), q.Filter(), q.Sort(), q.Skip(), q.Limit())
	if err != nil {
		g.respondError(c, err)
		return
	}
	if cakes == nil {
		cakes = []models.Cake{}
	}
	c.JSON(http.StatusOK, catalog.Listing{Cakes: cakes, Pagination: catalog.NewPage(total, q.Page, q.PageSize)})
}

// checkCategory makes sure a cake points at an existing category.
func (g *Gateway) checkCategory(ctx context.Context, cake *models.Cake) error {
	if cake.Category.IsZero() {
		return fmt.Errorf("%w: category is required", models.ErrInvalid)
	}
	if _, err := g.deps.Categories.Get(ctx, cake.Category.Hex()); err != nil {
		return fmt.Errorf("%w: unknown category %s", models.ErrInvalid, cake.Category.Hex())
	}
	return nil
}

func (g *Gateway) createCake(c *gin.Context) {
	var cake models.Cake
	if !bindJSON(c, &cake) {
		return
	}
	ctx := c.Request.Context()
	cake.Type = strings.ToLower(cake.Type)
	cake.CakeType = strings.ToLower(cake.CakeType)
	if err := cake.Validate(); err != nil {
		g.respondError(c, err)
		return
	}
	if err := g.checkCategory(ctx, &cake); err != nil {
		g.respondError(c, err)
		return
	}
	// Reviews and counters are never taken from the client.
	cake.Reviews, cake.AverageRating, cake.ReviewCount, cake.SoldCount = nil, 0, 0, 0
	if err := g.deps.Cakes.Create(ctx, &cake); err != nil {
		g.respondError(c, err)
		return
	}
	g.invalidateCatalog(ctx)
	g.audit(c, "cake.create", cake.ID.Hex(), auditData("name", cake.Name))
	c.JSON(http.StatusCreated, cake)
}

func (g *Gateway) updateCake(c *gin.Context) {
	id, ok := g.paramID(c, "id")
	if !ok {
		return
	}
	var cake models.Cake
	if !bindJSON(c, &cake) {
		return
	}
	ctx := c.Request.Context()
	cake.Type = strings.ToLower(cake.Type)
	cake.CakeType = strings.ToLower(cake.CakeType)
	if err := cake.Validate(); err != nil {
		g.respondError(c, err)
		return
	}
	if err := g.checkCategory(ctx, &cake); err != nil {
		g.respondError(c, err)
		return
	}
	if err := g.deps.Cakes.Update(ctx, id, &cake); err != nil {
		g.respondError(c, err)
		return
	}
	g.invalidateCatalog(ctx)
	g.audit(c, "cake.update", id.Hex(), auditData("name", cake.Name))

	updated, err := g.deps.Cakes.Get(ctx, id.Hex())
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (g *Gateway) deleteCake(c *gin.Context) {
	if deleteDocument(g, c, "cake", g.deps.Cakes.Delete) {
		g.invalidateCatalog(c.Request.Context())
	}
}

func (g *Gateway) setCakeAvailability(c *gin.Context) {
	id, ok := g.paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Available *bool `json:"available" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	if err := g.deps.Cakes.SetAvailable(ctx, id, *req.Available); err != nil {
		g.respondError(c, err)
		return
	}
	g.invalidateCatalog(ctx)
	g.audit(c, "cake.availability", id.Hex(), auditData("available", *req.Available))
	c.JSON(http.StatusOK, gin.H{"id": id, "available": *req.Available})
}

func (g *Gateway) uploadCakeImage(c *gin.Context) {
	id, ok := g.paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := g.deps.Cakes.Get(ctx, id.Hex()); err != nil {
		g.respondError(c, err)
		return
	}
	url, ok := g.saveImage(c, "cakes")
	if !ok {
		return
	}
	if err := g.deps.Cakes.AddImage(ctx, id, url); err != nil {
		g.respondError(c, err)
		return
	}
	g.invalidateCatalog(ctx)
	g.audit(c, "cake.image", id.Hex(), auditData("url", url))
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// categoryIndex maps lower-case slugs and names to category ids.
func (g *Gateway) categoryIndex(ctx context.Context) (map[string]primitive.ObjectID, map[primitive.ObjectID]string, error) {
	categories, err := g.deps.Categories.List(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	byKey := make(map[string]primitive.ObjectID, 2*len(categories))
	names := make(map[primitive.ObjectID]string, len(categories))
	for _, cat := range categories {
		byKey[strings.ToLower(cat.Slug)] = cat.ID
		byKey[strings.ToLower(cat.Name)] = cat.ID
		names[cat.ID] = cat.Slug
	}
	return byKey, names, nil
}

func (g *Gateway) importCakes(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, fmt.Errorf("file is required: %w", err))
		return
	}
	if !strings.EqualFold(extOf(header.Filename), ".xlsx") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only .xlsx workbooks are supported"})
		return
	}
	f, err := header.Open()
	if err != nil {
		badRequest(c, err)
		return
	}
	defer f.Close()

	ctx := c.Request.Context()
	categories, _, err := g.categoryIndex(ctx)
	if err != nil {
		g.respondError(c, err)
		return
	}
	res, err := catalog.ParseSheet(f, categories)
	if err != nil {
		g.respondError(c, fmt.Errorf("%w: %v", models.ErrInvalid, err))
		return
	}

	var created, updated int
	for i := range res.Cakes {
		inserted, err := g.deps.Cakes.UpsertByName(ctx, &res.Cakes[i])
		if err != nil {
			g.respondError(c, err)
			return
		}
		if inserted {
			created++
		} else {
			updated++
		}
	}
	if created+updated > 0 {
		g.invalidateCatalog(ctx)
	}
	skipped := res.Skipped
	if skipped == nil {
		skipped = []catalog.RowError{}
	}
	g.audit(c, "cake.import", "", auditData(
		"file", header.Filename, "created", created, "updated", updated, "skipped", len(skipped)))
	c.JSON(http.StatusOK, gin.H{"created": created, "updated": updated, "skipped": skipped})
}

func (g *Gateway) exportCakes(c *gin.Context) {
	ctx := c.Request.Context()
	cakes, err := g.deps.Cakes.All(ctx)
	if err != nil {
		g.respondError(c, err)
		return
	}
	_, names, err := g.categoryIndex(ctx)
	if err != nil {
		g.respondError(c, err)
		return
	}
	filename := fmt.Sprintf("cakes-%s.xlsx", g.now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", xlsxContentType)
	c.Status(http.StatusOK)
	if err := catalog.WriteSheet(c.Writer, cakes, names); err != nil {
		// Headers are already out; all that is left is to log.
		g.logger.Error("Cake export failed", zap.Error(err))
		_ = c.Error(err)
	}
}

func (g *Gateway) adminListCategories(c *gin.Context) {
	categories, err := g.deps.Categories.List(c.Request.Context(), false)
	if err != nil {
		g.respondError(c, err)
		return
	}
	listOf(c, "categories", categories)
}

func (g *Gateway) createCategory(c *gin.Context) {
	createDocument[models.Category](g, c, "category", g.deps.Categories.Create,
		func(cat *models.Category) primitive.ObjectID { return cat.ID })
}

func (g *Gateway) updateCategory(c *gin.Context) {
	if updateDocument[models.Category](g, c, "category", g.deps.Categories.Update) {
		g.invalidateCatalog(c.Request.Context())
	}
}

// deleteCategory refuses while cakes still reference the category.
func (g *Gateway) deleteCategory(c *gin.Context) {
	deleteDocument(g, c, "category", func(ctx context.Context, id primitive.ObjectID) error {
		n, err := g.deps.Cakes.CountByCategory(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: category still has %d cakes", repository.ErrConflict, n)
		}
		return g.deps.Categories.Delete(ctx, id)
	})
}

func (g *Gateway) adminListAddons(c *gin.Context) {
	addons, err := g.deps.Addons.List(c.Request.Context(), false)
	if err != nil {
		g.respondError(c, err)
		return
	}
	listOf(c, "addons", addons)
}

func (g *Gateway) createAddon(c *gin.Context) {
	createDocument[models.Addon](g, c, "addon", g.deps.Addons.Create,
		func(a *models.Addon) primitive.ObjectID { return a.ID })
}

func (g *Gateway) updateAddon(c *gin.Context) {
	updateDocument[models.Addon](g, c, "addon", g.deps.Addons.Update)
}

func (g *Gateway) deleteAddon(c *gin.Context) {
	deleteDocument(g, c, "addon", g.deps.Addons.Delete)
}
