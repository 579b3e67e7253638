package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/example/bakery/pkg/config"
	"github.com/example/bakery/pkg/models"
	"github.com/example/bakery/pkg/repository"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newIssuer() *TokenIssuer {
	return NewTokenIssuer(&config.AuthConfig{
		JWTSecret:  "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, "bakery-api")
}

func TestIssueAndParse(t *testing.T) {
	tokens := newIssuer()
	subject := primitive.NewObjectID().Hex()

	pair, err := tokens.Issue(subject, "asha@example.com", models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)

	claims, err := tokens.Parse(pair.AccessToken, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
	assert.Equal(t, models.RoleUser, claims.Role)

	_, err = tokens.Parse(pair.RefreshToken, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh token is not an access token")

	_, err = tokens.Parse(pair.AccessToken+"x", KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenIssuer(&config.AuthConfig{JWTSecret: "another", AccessTTL: time.Minute, RefreshTTL: time.Minute}, "bakery-api")
	_, err = other.Parse(pair.AccessToken, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiry(t *testing.T) {
	tokens := newIssuer()
	start := time.Now()
	tokens.now = func() time.Time { return start }

	pair, err := tokens.Issue("abc", "", models.RoleUser)
	require.NoError(t, err)

	tokens.now = func() time.Time { return start.Add(16 * time.Minute) }
	_, err = tokens.Parse(pair.AccessToken, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	refreshed, err := tokens.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	claims, err := tokens.Parse(refreshed.AccessToken, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.Subject)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := newIssuer()

	r := gin.New()
	r.GET("/me", RequireUser(tokens), func(c *gin.Context) {
		id, ok := UserID(c)
		require.True(t, ok)
		c.String(http.StatusOK, id.Hex())
	})
	r.GET("/admin", RequireAdmin(tokens), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	userID := primitive.NewObjectID()
	user, err := tokens.Issue(userID.Hex(), "u@example.com", models.RoleUser)
	require.NoError(t, err)
	admin, err := tokens.Issue(primitive.NewObjectID().Hex(), "a@example.com", models.RoleAdmin)
	require.NoError(t, err)

	call := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := call("/me", user.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.Hex(), w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call("/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call("/me", user.RefreshToken).Code)
	assert.Equal(t, http.StatusForbidden, call("/admin", user.AccessToken).Code)
	assert.Equal(t, http.StatusNoContent, call("/admin", admin.AccessToken).Code)
}

type memAdmins struct{ admins map[string]*models.Admin }

func (m *memAdmins) GetByEmail(_ context.Context, email string) (*models.Admin, error) {
	a, ok := m.admins[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (m *memAdmins) EnsureAdmin(_ context.Context, a *models.Admin) (bool, error) {
	if _, ok := m.admins[a.Email]; ok {
		return false, nil
	}
	a.ID = primitive.NewObjectID()
	m.admins[a.Email] = a
	return true, nil
}

func TestSeedAndLogin(t *testing.T) {
	store := &memAdmins{admins: map[string]*models.Admin{}}
	cfg := &config.AuthConfig{AdminEmail: "Owner@Bakery.test", AdminPassword: "s3cret!", AdminName: "Owner"}
	require.NoError(t, SeedAdmin(context.Background(), store, cfg, zap.NewNop()))
	require.NoError(t, SeedAdmin(context.Background(), store, cfg, zap.NewNop()))
	require.Len(t, store.admins, 1)

	tokens := newIssuer()
	pair, admin, err := AdminLogin(context.Background(), store, tokens, "owner@bakery.test", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "owner@bakery.test", admin.Email)
	claims, err := tokens.Parse(pair.AccessToken, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, _, err = AdminLogin(context.Background(), store, tokens, "owner@bakery.test", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, _, err = AdminLogin(context.Background(), store, tokens, "nobody@bakery.test", "s3cret!")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestOIDCVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	const issuer, clientID = "https://accounts.example.test", "client-123"
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	v := NewOIDCVerifier(ProviderGoogle, oidc.NewVerifier(issuer, keySet, &oidc.Config{ClientID: clientID}))

	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"iss":            issuer,
			"aud":            clientID,
			"sub":            "google-sub-1",
			"exp":            time.Now().Add(time.Hour).Unix(),
			"iat":            time.Now().Unix(),
			"email":          "asha@example.com",
			"email_verified": true,
			"name":           "Asha",
		}
	}

	id, err := v.Verify(context.Background(), sign(base()))
	require.NoError(t, err)
	assert.Equal(t, "google-sub-1", id.Subject)
	assert.Equal(t, "asha@example.com", id.Email)
	assert.Equal(t, ProviderGoogle, id.Provider)

	wrongAud := base()
	wrongAud["aud"] = "someone-else"
	_, err = v.Verify(context.Background(), sign(wrongAud))
	assert.ErrorIs(t, err, ErrInvalidToken)

	unverified := base()
	unverified["email_verified"] = false
	_, err = v.Verify(context.Background(), sign(unverified))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
