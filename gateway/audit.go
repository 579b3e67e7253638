package gateway

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/example/bakery/pkg/auth"
	"github.com/example/bakery/pkg/repository"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const defaultAuditLimit = 50

// audit records a back-office mutation. Failures are logged and never
// fail the request that caused them.
func (g *Gateway) audit(c *gin.Context, action, entityID string, data bson.M) {
	if g.deps.Audit == nil {
		return
	}
	actor := "anonymous"
	if claims := auth.ClaimsFrom(c); claims != nil {
		actor = claims.Email
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 3*time.Second)
	defer cancel()

	err := g.deps.Audit.CreateAuditLog(ctx, &repository.AuditLog{
		Service:  g.config.Server.Name,
		Actor:    actor,
		Action:   action,
		EntityID: entityID,
		Data:     data,
	})
	if err != nil {
		g.logger.Error("Failed to write audit log",
			zap.String("action", action),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

func (g *Gateway) auditLogs(c *gin.Context) {
	if g.deps.Audit == nil {
		c.JSON(http.StatusOK, gin.H{"logs": []any{}, "audit": "disabled"})
		return
	}
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(defaultAuditLimit)), 10, 64)
	if err != nil || limit < 1 || limit > maxPageSize {
		limit = defaultAuditLimit
	}
	logs, err := g.deps.Audit.GetAuditLogs(c.Request.Context(), c.Param("entityId"), limit)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
