package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gridwatch/internal/middleware"
	"gridwatch/internal/models"
	"gridwatch/internal/simulator"
	"gridwatch/internal/store"
)

// AlertController serves the persisted alert log with role scoping and
// display-time severity escalation.
type AlertController struct {
	store  *store.Store
	engine *simulator.Engine
}

// NewAlertController creates the alert controller
func NewAlertController(st *store.Store, engine *simulator.Engine) *AlertController {
	return &AlertController{store: st, engine: engine}
}

// alertView wraps a stored alert with its escalated severity. The stored
// row is never rewritten; escalation happens on the way out.
type alertView struct {
	models.Alert
	EffectiveSeverity string `json:"effective_severity"`
}

func viewAlerts(alerts []models.Alert, severity string) []alertView {
	views := make([]alertView, 0, len(alerts))
	for _, a := range alerts {
		eff := a.EffectiveSeverity()
		if severity != "" && eff != severity {
			continue
		}
		views = append(views, alertView{Alert: a, EffectiveSeverity: eff})
	}
	return views
}

// List returns recent alerts, newest first. Admins see the full log,
// sub-users only alerts for their assigned devices. Accepts an optional
// ?severity= filter matched against the effective severity.
func (ac *AlertController) List(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	severity := strings.ToLower(strings.TrimSpace(c.Query("severity")))

	var (
		alerts []models.Alert
		err    error
	)
	if claims.IsAdmin() {
		alerts, err = ac.store.RecentAlerts(c.Request.Context(), simulator.AlertLogLimit)
	} else {
		alerts, err = ac.store.AlertsForSerials(c.Request.Context(), claims.AssignedDevices, simulator.AlertLogLimit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": viewAlerts(alerts, severity)})
}

type alertRequest struct {
	DeviceID  string  `json:"device_id"`
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Message   string  `json:"message"`
}

// Create records a manual alert. Sub-users may only raise alerts against
// devices assigned to them.
func (ac *AlertController) Create(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)

	var req alertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.DeviceID = strings.TrimSpace(req.DeviceID)
	if req.DeviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id is required"})
		return
	}
	if req.Metric == "" {
		req.Metric = models.MetricVoltage
	}

	if !claims.IsAdmin() && !containsSerial(claims.AssignedDevices, req.DeviceID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "device is not assigned to you"})
		return
	}

	now := time.Now()
	alert := models.Alert{
		ID:        req.DeviceID + "-" + now.UTC().Format(time.RFC3339Nano),
		DeviceID:  req.DeviceID,
		Timestamp: now,
		Metric:    req.Metric,
		Value:     req.Value,
		Threshold: req.Threshold,
		Severity:  models.SeverityWarning,
		Message:   req.Message,
	}
	if err := ac.store.InsertAlert(c.Request.Context(), alert); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"alert": alertView{Alert: alert, EffectiveSeverity: alert.EffectiveSeverity()}})
}

// Clear wipes the alert log. Admins clear everything, including the
// engine's in-memory log; sub-users only clear alerts for their devices.
func (ac *AlertController) Clear(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)

	if claims.IsAdmin() {
		ac.engine.ClearAlerts()
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if err := ac.store.DeleteAlertsForSerials(c.Request.Context(), claims.AssignedDevices); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func containsSerial(serials []string, serial string) bool {
	for _, s := range serials {
		if s == serial {
			return true
		}
	}
	return false
}
