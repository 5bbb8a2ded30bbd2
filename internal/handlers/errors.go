package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/zylo/pkg/apperrors"
)

func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": apperrors.PublicMessage(err)})
}
