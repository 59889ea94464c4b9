package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gridwatch/internal/logger"
	"gridwatch/internal/middleware"
	"gridwatch/internal/models"
	"gridwatch/internal/simulator"
	"gridwatch/internal/store"
)

// subUserSampleSize is the demo fallback: a sub-user with no assigned
// devices still sees a small sample so the dashboard is not empty.
const subUserSampleSize = 3

// DeviceController handles registry CRUD and keeps the simulation engine's
// device snapshot in sync with the registry.
type DeviceController struct {
	store  *store.Store
	engine *simulator.Engine
}

// NewDeviceController creates the device controller
func NewDeviceController(st *store.Store, engine *simulator.Engine) *DeviceController {
	return &DeviceController{store: st, engine: engine}
}

// List returns the devices visible to the caller: admins see the whole
// registry, sub-users their assigned devices.
func (dc *DeviceController) List(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)

	if claims.IsAdmin() {
		devices, err := dc.store.ListDevices(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"devices": devices})
		return
	}

	devices, err := dc.store.DevicesForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(devices) == 0 {
		devices, err = dc.store.SampleDevices(c.Request.Context(), subUserSampleSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

type deviceRequest struct {
	SerialNumber    string `json:"serialNumber"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	Location        string `json:"location"`
	MACAddress      string `json:"macAddress"`
	FirmwareVersion string `json:"firmwareVersion"`
	Protocol        string `json:"protocol"`
	Status          string `json:"status"`
}

func (r *deviceRequest) validate(requireSerial bool) (models.Device, string) {
	serial := strings.TrimSpace(r.SerialNumber)
	if requireSerial && !models.ValidSerial(serial) {
		return models.Device{}, "serialNumber must be exactly 10 digits"
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return models.Device{}, "name is required"
	}
	deviceType := strings.TrimSpace(r.Type)
	if deviceType == "" {
		return models.Device{}, "type is required"
	}
	mac := strings.TrimSpace(r.MACAddress)
	if mac == "" {
		return models.Device{}, "macAddress is required"
	}
	firmware := strings.TrimSpace(r.FirmwareVersion)
	if firmware == "" {
		return models.Device{}, "firmwareVersion is required"
	}

	protocol := strings.TrimSpace(r.Protocol)
	if protocol == "" {
		protocol = "MQTT"
	}
	status := models.NormalizeStatus(r.Status)
	if status == "" {
		status = models.StatusOffline
	}

	return models.Device{
		SerialNumber:    serial,
		Name:            name,
		Type:            deviceType,
		Location:        strings.TrimSpace(r.Location),
		MACAddress:      mac,
		FirmwareVersion: firmware,
		Protocol:        protocol,
		Status:          status,
	}, ""
}

// Create registers a new device (admin only)
func (dc *DeviceController) Create(c *gin.Context) {
	var req deviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	device, problem := req.validate(true)
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}

	created, err := dc.store.CreateDevice(c.Request.Context(), device)
	if errors.Is(err, store.ErrDuplicateSerial) {
		c.JSON(http.StatusConflict, gin.H{"error": "a device with this serialNumber already exists"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	dc.republish(c)
	c.JSON(http.StatusCreated, gin.H{"device": created})
}

// Update rewrites a device's mutable fields (admin only)
func (dc *DeviceController) Update(c *gin.Context) {
	serial := c.Param("serial")
	var req deviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	device, problem := req.validate(false)
	if problem != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": problem})
		return
	}

	updated, err := dc.store.UpdateDevice(c.Request.Context(), serial, device)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	dc.republish(c)
	c.JSON(http.StatusOK, gin.H{"device": updated})
}

// Delete removes a device from the registry (admin only)
func (dc *DeviceController) Delete(c *gin.Context) {
	serial := c.Param("serial")
	err := dc.store.DeleteDevice(c.Request.Context(), serial)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	dc.republish(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// republish pushes the post-mutation registry state to everyone observing
// the device channel.
func (dc *DeviceController) republish(c *gin.Context) {
	devices, err := dc.store.ListDevices(c.Request.Context())
	if err != nil {
		logger.Warn().Err(err).Msg("registry republish skipped")
		return
	}
	dc.engine.PublishDevices(devices)
}
