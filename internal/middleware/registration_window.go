package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	appErrors "github.com/yourlocalmaccas/School-Website/pkg/errors"
	"github.com/yourlocalmaccas/School-Website/pkg/response"
)

type windowChecker interface {
	IsOpen(ctx context.Context) (bool, error)
}

// RegistrationWindow rejects public registration while the window is closed.
func RegistrationWindow(status windowChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		open, err := status.IsOpen(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		if !open {
			response.Error(c, appErrors.ErrRegistrationClosed)
			return
		}
		c.Next()
	}
}
