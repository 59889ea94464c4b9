package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gridwatch/internal/store"
)

// AdminController covers the operator-only surface: listing users,
// inspecting login activity and managing device assignments.
type AdminController struct {
	store *store.Store
}

// NewAdminController creates the admin controller
func NewAdminController(st *store.Store) *AdminController {
	return &AdminController{store: st}
}

// ListUsers returns every registered account
func (ac *AdminController) ListUsers(c *gin.Context) {
	users, err := ac.store.ListUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// LoginActivity returns the recent login records for one user
func (ac *AdminController) LoginActivity(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	records, err := ac.store.LoginActivity(c.Request.Context(), userID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": records})
}

type assignmentRequest struct {
	UserID int64  `json:"user_id"`
	Serial string `json:"serial"`
}

// AssignDevice grants a user visibility over a device
func (ac *AdminController) AssignDevice(c *gin.Context) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == 0 || req.Serial == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and serial are required"})
		return
	}
	err := ac.store.AssignDevice(c.Request.Context(), req.Serial, req.UserID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "device or user not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// UnassignDevice revokes a user's visibility over a device
func (ac *AdminController) UnassignDevice(c *gin.Context) {
	var req assignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == 0 || req.Serial == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and serial are required"})
		return
	}
	if err := ac.store.UnassignDevice(c.Request.Context(), req.Serial, req.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
