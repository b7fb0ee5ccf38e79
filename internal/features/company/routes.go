package company

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterRoutes wires company endpoints into the API group.
// Middleware is passed as parameters to avoid import cycles; public guards the
// unauthenticated endpoints (rate limiting).
func RegisterRoutes(api *gin.RouterGroup, db *gorm.DB, logger *slog.Logger, lookup RegistryLookup, mailer WelcomeSender, public, adminOnly, superadminOnly []gin.HandlerFunc) {
	handler := NewHandler(db, logger, lookup, mailer)

	companies := api.Group("/companies")

	// Public: self-registration and the registry prefill used by the signup form.
	companies.POST("/register", withHandler(public, handler.Register)...)
	companies.POST("/lookup", withHandler(public, handler.Lookup)...)

	companies.GET("", withHandler(adminOnly, handler.List)...)
	companies.POST("", withHandler(adminOnly, handler.Create)...)
	companies.GET("/by-tax-id/:taxId", withHandler(adminOnly, handler.GetByTaxID)...)
	companies.GET("/:companyId", withHandler(adminOnly, handler.GetByID)...)
	companies.PATCH("/:companyId", withHandler(adminOnly, handler.Update)...)
	companies.POST("/:companyId/sync", withHandler(adminOnly, handler.Sync)...)
	companies.DELETE("/:companyId", withHandler(superadminOnly, handler.Delete)...)
}

func withHandler(mw []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(mw)+1)
	chain = append(chain, mw...)
	return append(chain, h)
}
