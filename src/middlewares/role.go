package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminOnly gates the override and inventory-maintenance routes. The
// override path must stay a structurally separate entry point, so the
// privilege check lives on its router group rather than inside handlers.
func AdminOnly(ctx *gin.Context) {
	if ctx.GetString("role") != "admin" {
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin privileges required"})
		return
	}
}
