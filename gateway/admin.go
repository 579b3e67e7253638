package gateway

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// document is a model that checks its own invariants.
type document[T any] interface {
	*T
	Validate() error
}

// createDocument binds, validates and stores a new document, then audits
// "<entity>.create".
func createDocument[T any, P document[T]](g *Gateway, c *gin.Context, entity string,
	create func(context.Context, P) error, idOf func(P) primitive.ObjectID) bool {
	doc := P(new(T))
	if !bindJSON(c, doc) {
		return false
	}
	if err := doc.Validate(); err != nil {
		g.respondError(c, err)
		return false
	}
	if err := create(c.Request.Context(), doc); err != nil {
		g.respondError(c, err)
		return false
	}
	g.audit(c, entity+".create", idOf(doc).Hex(), nil)
	c.JSON(http.StatusCreated, doc)
	return true
}

func updateDocument[T any, P document[T]](g *Gateway, c *gin.Context, entity string,
	update func(context.Context, primitive.ObjectID, P) error) bool {
	id, ok := g.paramID(c, "id")
	if !ok {
		return false
	}
	doc := P(new(T))
	if !bindJSON(c, doc) {
		return false
	}
	if err := doc.Validate(); err != nil {
		g.respondError(c, err)
		return false
	}
	if err := update(c.Request.Context(), id, doc); err != nil {
		g.respondError(c, err)
		return false
	}
	g.audit(c, entity+".update", id.Hex(), nil)
	c.JSON(http.StatusOK, doc)
	return true
}

func deleteDocument(g *Gateway, c *gin.Context, entity string,
	remove func(context.Context, primitive.ObjectID) error) bool {
	id, ok := g.paramID(c, "id")
	if !ok {
		return false
	}
	if err := remove(c.Request.Context(), id); err != nil {
		g.respondError(c, err)
		return false
	}
	g.audit(c, entity+".delete", id.Hex(), nil)
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
	return true
}

// listOf answers {key: items}, never null.
func listOf[T any](c *gin.Context, key string, items []T) {
	if items == nil {
		items = []T{}
	}
	c.JSON(http.StatusOK, gin.H{key: items})
}

func auditData(kv ...any) bson.M {
	m := bson.M{}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			m[k] = kv[i+1]
		}
	}
	return m
}
