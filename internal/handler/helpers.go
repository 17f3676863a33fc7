package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/yourlocalmaccas/School-Website/pkg/errors"
	"github.com/yourlocalmaccas/School-Website/pkg/response"
)

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}
