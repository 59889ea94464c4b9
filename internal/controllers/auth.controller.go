package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"gridwatch/internal/logger"
	"gridwatch/internal/middleware"
	"gridwatch/internal/models"
	"gridwatch/internal/services"
	"gridwatch/internal/store"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

// AuthController handles signup, login and session introspection
type AuthController struct {
	store *store.Store
	auth  *services.AuthService
}

// NewAuthController creates the auth controller
func NewAuthController(st *store.Store, auth *services.AuthService) *AuthController {
	return &AuthController{store: st, auth: auth}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Signup registers a new account. Only the first admin may sign up as
// Admin; later admin accounts are provisioned by an existing admin.
func (ac *AuthController) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailPattern.MatchString(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid email is required"})
		return
	}
	if len(req.Password) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}
	if req.Role != models.RoleAdmin && req.Role != models.RoleSubUser {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be Admin or Sub-User"})
		return
	}

	if req.Role == models.RoleAdmin {
		exists, err := ac.store.AdminExists(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
			return
		}
		if exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin already exists, register as Sub-User"})
			return
		}
	}

	hash, err := ac.auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	user, err := ac.store.CreateUser(c.Request.Context(), email, hash, req.Role)
	if errors.Is(err, store.ErrDuplicateEmail) {
		c.JSON(http.StatusConflict, gin.H{"error": "email is already registered"})
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("user creation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	token, err := ac.auth.GenerateToken(user, []string{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	ac.setSessionCookie(c, token)
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

// Login authenticates credentials and issues a session token. Failures are
// answered uniformly to avoid user enumeration.
func (ac *AuthController) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	user, err := ac.store.UserByEmail(c.Request.Context(), email)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	ok := ac.auth.CheckPassword(user.PasswordHash, req.Password)
	if err := ac.store.RecordLogin(c.Request.Context(), user.ID, c.ClientIP(), ok); err != nil {
		logger.Warn().Err(err).Msg("login activity record failed")
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	assigned := []string{}
	if user.Role == models.RoleSubUser {
		assigned, err = ac.store.AssignedSerials(c.Request.Context(), user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}
	}

	token, err := ac.auth.GenerateToken(user, assigned)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	ac.setSessionCookie(c, token)
	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"user": gin.H{
			"id":               user.ID,
			"email":            user.Email,
			"role":             user.Role,
			"assigned_devices": assigned,
		},
	})
}

// Logout clears the session cookie
func (ac *AuthController) Logout(c *gin.Context) {
	c.SetCookie(middleware.AuthCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me returns the authenticated user's claims
func (ac *AuthController) Me(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"id":               claims.UserID,
		"email":            claims.Email,
		"role":             claims.Role,
		"assigned_devices": claims.AssignedDevices,
	})
}

func (ac *AuthController) setSessionCookie(c *gin.Context, token string) {
	maxAge := int(ac.auth.TokenTTL().Seconds())
	c.SetCookie(middleware.AuthCookieName, token, maxAge, "/", "", false, true)
}
