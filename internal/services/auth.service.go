package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"gridwatch/internal/logger"
	"gridwatch/internal/models"
)

const bcryptCost = 12

// AuthService manages password hashing and JWT token generation/validation
type AuthService struct {
	secretKey string
	tokenTTL  time.Duration
}

// AuthClaims represents the JWT claims structure
type AuthClaims struct {
	UserID          int64    `json:"uid"`
	Email           string   `json:"email"`
	Role            string   `json:"role"`
	AssignedDevices []string `json:"assigned_devices"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token belongs to an admin account
func (c *AuthClaims) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// NewAuthService initializes the authentication service. With an empty
// secretKey, a key is loaded from (or generated into) a key file so tokens
// survive restarts.
func NewAuthService(secretKey string, tokenTTL time.Duration) *AuthService {
	if secretKey == "" {
		homeDir, _ := os.UserHomeDir()
		keyFile := filepath.Join(homeDir, ".gridwatch-secret-key")
		if homeDir == "" {
			keyFile = filepath.Join(os.TempDir(), ".gridwatch-secret-key")
		}

		if data, err := os.ReadFile(keyFile); err == nil && len(data) > 0 {
			secretKey = strings.TrimSpace(string(data))
			logger.Info().Str("file", keyFile).Msg("loaded persisted secret key")
		} else {
			randomBytes := make([]byte, 32)
			if _, err := rand.Read(randomBytes); err != nil {
				// Fallback if random generation fails
				secretKey = fmt.Sprintf("gridwatch-%d-backup", time.Now().UnixNano())
				logger.Warn().Msg("random generation failed, using fallback key")
			} else {
				secretKey = "gridwatch-" + hex.EncodeToString(randomBytes)
			}

			if err := os.WriteFile(keyFile, []byte(secretKey), 0o600); err != nil {
				logger.Warn().Err(err).Str("file", keyFile).Msg("could not persist secret key")
			} else {
				logger.Info().Str("file", keyFile).Msg("generated and persisted secret key")
			}
		}
	}

	if tokenTTL == 0 {
		tokenTTL = 7 * 24 * time.Hour
	}

	return &AuthService{
		secretKey: strings.TrimSpace(secretKey),
		tokenTTL:  tokenTTL,
	}
}

// HashPassword hashes a plaintext password for storage
func (a *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a stored hash
func (a *AuthService) CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken creates a new JWT token for a user, embedding the serials
// of the devices assigned to them (empty for admins, who see everything)
func (a *AuthService) GenerateToken(user models.User, assignedDevices []string) (string, error) {
	now := time.Now()
	claims := AuthClaims{
		UserID:          user.ID,
		Email:           user.Email,
		Role:            user.Role,
		AssignedDevices: assignedDevices,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "gridwatch",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.secretKey))
}

// ValidateToken verifies and parses a JWT token
func (a *AuthService) ValidateToken(tokenString string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.secretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// TokenTTL returns the configured token lifetime
func (a *AuthService) TokenTTL() time.Duration {
	return a.tokenTTL
}
