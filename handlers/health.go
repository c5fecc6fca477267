package handlers

import (
	"net/http"

	"metisconnect/config"
	"metisconnect/utils"

	"github.com/gin-gonic/gin"
)

// Health reports the last dependency check.
func Health(c *gin.Context) {
	status := utils.GetHealthStatus()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"environment": config.GetEnv(),
		"payments":    config.PaymentsEnabled(),
		"voice":       config.VoiceEnabled(),
		"checks":      status,
	})
}
