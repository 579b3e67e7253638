package gateway

import (
	"net/http"

	"github.com/example/bakery/pkg/auth"
	"github.com/example/bakery/pkg/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type sessionResponse struct {
	*auth.TokenPair
	User  *models.User  `json:"user,omitempty"`
	Admin *models.Admin `json:"admin,omitempty"`
}

func (g *Gateway) googleLogin(c *gin.Context) {
	if g.deps.Identity == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "provider login is not configured"})
		return
	}
	var req struct {
		IDToken string `json:"id_token" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	identity, err := g.deps.Identity.Verify(ctx, req.IDToken)
	if err != nil {
		g.logger.Info("Rejected provider token", zap.Error(err))
		g.respondError(c, err)
		return
	}
	user, err := g.deps.Users.UpsertFromProvider(ctx, &models.User{
		Name:     identity.Name,
		Email:    identity.Email,
		Picture:  identity.Picture,
		Provider: identity.Provider,
		Subject:  identity.Subject,
	})
	if err != nil {
		g.respondError(c, err)
		return
	}
	pair, err := g.deps.Tokens.Issue(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{TokenPair: pair, User: user})
}

func (g *Gateway) refreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	pair, err := g.deps.Tokens.Refresh(req.RefreshToken)
	if err != nil {
		g.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{TokenPair: pair})
}

func (g *Gateway) adminLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	pair, admin, err := auth.AdminLogin(c.Request.Context(), g.deps.Admins, g.deps.Tokens, req.Email, req.Password)
	if err != nil {
		g.logger.Warn("Admin login failed", zap.String("email", req.Email), zap.Error(err))
		g.respondError(c, err)
		return
	}
	g.audit(c, "admin.login", admin.ID.Hex(), auditData("email", admin.Email))
	c.JSON(http.StatusOK, sessionResponse{TokenPair: pair, Admin: admin})
}
