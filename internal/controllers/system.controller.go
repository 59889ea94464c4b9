package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gridwatch/internal/services"
	"gridwatch/internal/simulator"
)

// SystemController serves the settings panel's host and fleet health view.
type SystemController struct {
	system *services.SystemService
	engine *simulator.Engine
}

// NewSystemController creates the system controller
func NewSystemController(system *services.SystemService, engine *simulator.Engine) *SystemController {
	return &SystemController{system: system, engine: engine}
}

// Health returns host readings plus the simulated fleet's live counters
func (sc *SystemController) Health(c *gin.Context) {
	health, err := sc.system.Health()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	devices := sc.engine.Devices()
	c.JSON(http.StatusOK, gin.H{
		"host": health,
		"fleet": gin.H{
			"total_devices":  len(devices),
			"online_devices": sc.engine.OnlineCount(),
			"simulating":     sc.engine.Running(),
		},
	})
}
