package handler

import (
	"github.com/gin-gonic/gin"

	"custody-core/internal/handler/response"
)

// HealthCheck 探活接口
func HealthCheck(c *gin.Context) {
	response.Success(c, gin.H{
		"status":  "UP",
		"service": "custody-server",
	})
}
