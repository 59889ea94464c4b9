package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridwatch/internal/controllers"
	"gridwatch/internal/middleware"
	"gridwatch/internal/models"
	"gridwatch/internal/routes"
	"gridwatch/internal/services"
	"gridwatch/internal/simulator"
	"gridwatch/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *store.Store
	auth   *services.AuthService
	engine *simulator.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "gridwatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	auth := services.NewAuthService("test-secret", time.Hour)
	engine := simulator.NewEngine(st, st, simulator.Options{Interval: time.Hour})
	authMW := middleware.NewAuthMiddleware(auth)

	r := gin.New()
	routes.RegisterAuthRoutes(r, controllers.NewAuthController(st, auth), authMW)
	routes.RegisterDeviceRoutes(r, controllers.NewDeviceController(st, engine), authMW)
	routes.RegisterAlertRoutes(r, controllers.NewAlertController(st, engine), authMW)
	routes.RegisterAdminRoutes(r, controllers.NewAdminController(st), authMW)

	return &testServer{router: r, store: st, auth: auth, engine: engine}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.AuthCookieName, Value: token})
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()
	user, err := ts.store.CreateUser(context.Background(), "ops@example.com", "hash", models.RoleAdmin)
	require.NoError(t, err)
	token, err := ts.auth.GenerateToken(user, nil)
	require.NoError(t, err)
	return token
}

func (ts *testServer) subUserToken(t *testing.T, assigned ...string) string {
	t.Helper()
	user, err := ts.store.CreateUser(context.Background(), "viewer@example.com", "hash", models.RoleSubUser)
	require.NoError(t, err)
	for _, serial := range assigned {
		require.NoError(t, ts.store.AssignDevice(context.Background(), serial, user.ID))
	}
	token, err := ts.auth.GenerateToken(user, assigned)
	require.NoError(t, err)
	return token
}

func deviceBody(serial string) gin.H {
	return gin.H{
		"serialNumber":    serial,
		"name":            "Meter " + serial,
		"type":            models.TypeSmartMeter,
		"location":        "Block A",
		"macAddress":      "00:1A:2B:3C:4D:5E",
		"firmwareVersion": "2.4.1",
		"status":          "online",
	}
}

func TestSignupFirstAdminOnly(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodPost, "/auth/signup", "",
		gin.H{"email": "first@example.com", "password": "longenough", "role": models.RoleAdmin})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.AuthCookieName)

	w = ts.request(t, http.MethodPost, "/auth/signup", "",
		gin.H{"email": "second@example.com", "password": "longenough", "role": models.RoleAdmin})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.request(t, http.MethodPost, "/auth/signup", "",
		gin.H{"email": "second@example.com", "password": "longenough", "role": models.RoleSubUser})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSignupValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodPost, "/auth/signup", "",
		gin.H{"email": "not-an-email", "password": "longenough", "role": models.RoleAdmin})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.request(t, http.MethodPost, "/auth/signup", "",
		gin.H{"email": "a@example.com", "password": "short", "role": models.RoleAdmin})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.request(t, http.MethodPost, "/auth/signup", "",
		gin.H{"email": "a@example.com", "password": "longenough", "role": "Owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignupDuplicateEmail(t *testing.T) {
	ts := newTestServer(t)

	body := gin.H{"email": "dup@example.com", "password": "longenough", "role": models.RoleSubUser}
	assert.Equal(t, http.StatusCreated, ts.request(t, http.MethodPost, "/auth/signup", "", body).Code)
	assert.Equal(t, http.StatusConflict, ts.request(t, http.MethodPost, "/auth/signup", "", body).Code)
}

func TestLoginUniformFailures(t *testing.T) {
	ts := newTestServer(t)
	ts.request(t, http.MethodPost, "/auth/signup", "",
		gin.H{"email": "ops@example.com", "password": "longenough", "role": models.RoleAdmin})

	w := ts.request(t, http.MethodPost, "/auth/login", "",
		gin.H{"email": "ops@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Unknown account answers identically to a wrong password.
	w2 := ts.request(t, http.MethodPost, "/auth/login", "",
		gin.H{"email": "ghost@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w2.Code)
	assert.JSONEq(t, w.Body.String(), w2.Body.String())

	w = ts.request(t, http.MethodPost, "/auth/login", "",
		gin.H{"email": "ops@example.com", "password": "longenough"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMeRequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.request(t, http.MethodGet, "/auth/me", "", nil).Code)

	token := ts.adminToken(t)
	w := ts.request(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ops@example.com")
}

func TestDeviceCreateValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.adminToken(t)

	w := ts.request(t, http.MethodPost, "/devices", token, deviceBody("12345"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "10 digits")

	body := deviceBody("1234567890")
	delete(body, "name")
	w = ts.request(t, http.MethodPost, "/devices", token, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.request(t, http.MethodPost, "/devices", token, deviceBody("1234567890"))
	assert.Equal(t, http.StatusCreated, w.Code)

	var payload struct {
		Device models.Device `json:"device"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, models.StatusOnline, payload.Device.Status, "status normalized to canonical casing")
	assert.Equal(t, "MQTT", payload.Device.Protocol, "protocol defaulted")

	w = ts.request(t, http.MethodPost, "/devices", token, deviceBody("1234567890"))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeviceMutationsAdminOnly(t *testing.T) {
	ts := newTestServer(t)
	token := ts.subUserToken(t)

	assert.Equal(t, http.StatusForbidden,
		ts.request(t, http.MethodPost, "/devices", token, deviceBody("1234567890")).Code)
	assert.Equal(t, http.StatusForbidden,
		ts.request(t, http.MethodDelete, "/devices/1234567890", token, nil).Code)
}

func TestDeviceListRoleScoped(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	for i := 0; i < 5; i++ {
		w := ts.request(t, http.MethodPost, "/devices", admin, deviceBody(fmt.Sprintf("123456789%d", i)))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	var payload struct {
		Devices []models.Device `json:"devices"`
	}

	w := ts.request(t, http.MethodGet, "/devices", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Len(t, payload.Devices, 5, "admin sees the whole registry")

	sub := ts.subUserToken(t, "1234567890", "1234567891")
	w = ts.request(t, http.MethodGet, "/devices", sub, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Len(t, payload.Devices, 2, "sub-user sees assigned devices only")
}

func TestDeviceListSampleFallback(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	for i := 0; i < 5; i++ {
		ts.request(t, http.MethodPost, "/devices", admin, deviceBody(fmt.Sprintf("123456789%d", i)))
	}

	sub := ts.subUserToken(t) // no assignments
	w := ts.request(t, http.MethodGet, "/devices", sub, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Devices []models.Device `json:"devices"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Len(t, payload.Devices, 3, "unassigned sub-user falls back to a small sample")
}

func TestDeviceUpdateAndDelete(t *testing.T) {
	ts := newTestServer(t)
	token := ts.adminToken(t)
	require.Equal(t, http.StatusCreated,
		ts.request(t, http.MethodPost, "/devices", token, deviceBody("1234567890")).Code)

	body := deviceBody("1234567890")
	body["name"] = "Renamed"
	w := ts.request(t, http.MethodPut, "/devices/1234567890", token, body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Renamed")

	assert.Equal(t, http.StatusNotFound,
		ts.request(t, http.MethodPut, "/devices/9999999999", token, body).Code)

	assert.Equal(t, http.StatusOK,
		ts.request(t, http.MethodDelete, "/devices/1234567890", token, nil).Code)
	assert.Equal(t, http.StatusNotFound,
		ts.request(t, http.MethodDelete, "/devices/1234567890", token, nil).Code)
}

func seedAlert(t *testing.T, ts *testServer, serial string, value float64, at time.Time) {
	t.Helper()
	require.NoError(t, ts.store.InsertAlert(context.Background(), models.Alert{
		ID:        serial + "-" + at.UTC().Format(time.RFC3339Nano),
		DeviceID:  serial,
		Timestamp: at,
		Metric:    models.MetricVoltage,
		Value:     value,
		Threshold: 240,
		Severity:  models.SeverityWarning,
		Message:   "High voltage detected",
	}))
}

type alertListPayload struct {
	Alerts []struct {
		models.Alert
		EffectiveSeverity string `json:"effective_severity"`
	} `json:"alerts"`
}

func TestAlertListEscalatesSeverity(t *testing.T) {
	ts := newTestServer(t)
	token := ts.adminToken(t)
	base := time.Now()
	seedAlert(t, ts, "1000000001", 245, base)          // warning
	seedAlert(t, ts, "2000000002", 260, base.Add(time.Second)) // critical

	w := ts.request(t, http.MethodGet, "/alerts", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload alertListPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Alerts, 2)
	assert.Equal(t, models.SeverityCritical, payload.Alerts[0].EffectiveSeverity)
	assert.Equal(t, models.SeverityWarning, payload.Alerts[0].Severity, "stored severity untouched")
	assert.Equal(t, models.SeverityWarning, payload.Alerts[1].EffectiveSeverity)

	w = ts.request(t, http.MethodGet, "/alerts?severity=critical", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Alerts, 1)
	assert.Equal(t, "2000000002", payload.Alerts[0].DeviceID)
}

func TestAlertListRoleScoped(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	ts.request(t, http.MethodPost, "/devices", admin, deviceBody("1000000001"))
	ts.request(t, http.MethodPost, "/devices", admin, deviceBody("2000000002"))

	base := time.Now()
	seedAlert(t, ts, "1000000001", 245, base)
	seedAlert(t, ts, "2000000002", 245, base.Add(time.Second))

	sub := ts.subUserToken(t, "1000000001")
	w := ts.request(t, http.MethodGet, "/alerts", sub, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload alertListPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Alerts, 1)
	assert.Equal(t, "1000000001", payload.Alerts[0].DeviceID)
}

func TestAlertCreateScopedToAssignedDevices(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	ts.request(t, http.MethodPost, "/devices", admin, deviceBody("1000000001"))
	ts.request(t, http.MethodPost, "/devices", admin, deviceBody("2000000002"))

	sub := ts.subUserToken(t, "1000000001")
	w := ts.request(t, http.MethodPost, "/alerts", sub,
		gin.H{"device_id": "2000000002", "value": 250, "threshold": 240})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.request(t, http.MethodPost, "/alerts", sub,
		gin.H{"device_id": "1000000001", "value": 250, "threshold": 240})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestAlertClearRoleScoped(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	ts.request(t, http.MethodPost, "/devices", admin, deviceBody("1000000001"))
	ts.request(t, http.MethodPost, "/devices", admin, deviceBody("2000000002"))
	base := time.Now()
	seedAlert(t, ts, "1000000001", 245, base)
	seedAlert(t, ts, "2000000002", 245, base.Add(time.Second))

	sub := ts.subUserToken(t, "1000000001")
	assert.Equal(t, http.StatusOK, ts.request(t, http.MethodDelete, "/alerts", sub, nil).Code)

	remaining, err := ts.store.RecentAlerts(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, remaining, 1, "sub-user clear only touches assigned devices")
	assert.Equal(t, "2000000002", remaining[0].DeviceID)
}

func TestAdminSurfaceForbiddenForSubUsers(t *testing.T) {
	ts := newTestServer(t)
	sub := ts.subUserToken(t)

	assert.Equal(t, http.StatusForbidden, ts.request(t, http.MethodGet, "/admin/users", sub, nil).Code)
}

func TestAdminAssignmentFlow(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	ts.request(t, http.MethodPost, "/devices", admin, deviceBody("1000000001"))

	user, err := ts.store.CreateUser(context.Background(), "viewer@example.com", "hash", models.RoleSubUser)
	require.NoError(t, err)

	w := ts.request(t, http.MethodPost, "/admin/assignments", admin,
		gin.H{"user_id": user.ID, "serial": "1000000001"})
	assert.Equal(t, http.StatusOK, w.Code)

	serials, err := ts.store.AssignedSerials(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"1000000001"}, serials)

	w = ts.request(t, http.MethodDelete, "/admin/assignments", admin,
		gin.H{"user_id": user.ID, "serial": "1000000001"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.request(t, http.MethodPost, "/admin/assignments", admin,
		gin.H{"user_id": user.ID, "serial": "9999999999"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
