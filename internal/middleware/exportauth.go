package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shift-checklist-bot/internal/utils"
)

// ExportAuth validates the signed token carried in the ?token= query
// parameter of the CSV export route. Tokens are minted by the admin
// machine and expire on their own; there is nothing to revoke.
func ExportAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tok := c.QueryParam("token")
			if tok == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
			}
			if err := utils.VerifyExportToken(secret, tok); err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}
			return next(c)
		}
	}
}
