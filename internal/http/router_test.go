package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tms/internal/clients/gateway"
	intconfig "tms/internal/config"
	"tms/internal/domain"
	"tms/internal/http/handlers"
	"tms/internal/services"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testTokens = services.TokenIssuer{Secret: []byte("router-test-secret"), TTL: time.Hour}

func setup(t *testing.T, ratePerMinute int) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	prev := intconfig.DB
	intconfig.DB = db
	t.Cleanup(func() {
		intconfig.DB = prev
		db.Close()
	})

	handlers.Configure(handlers.Options{
		Tokens:            testTokens,
		MaxFailedAttempts: 5,
		LockoutDuration:   30 * time.Minute,
		Gateway:           gateway.New(gateway.Config{BaseURL: "http://gateway.invalid", KeyID: "key", KeySecret: "secret", WebhookSecret: "whsec"}),
	})

	env := intconfig.Env{CORSAllowedOrigins: []string{"http://localhost:3000"}, LoginRatePerMinute: ratePerMinute}
	return NewRouter(env, testTokens), mock
}

func tokenFor(t *testing.T, id int64, role string) string {
	t.Helper()
	tok, _, err := testTokens.Issue(domain.Principal{UserID: id, Role: role, Email: "user@jkkn.ac.in"})
	require.NoError(t, err)
	return tok
}

func do(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	r, _ := setup(t, 10)
	w := do(r, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNoRouteIsJSON(t *testing.T) {
	r, _ := setup(t, 10)
	w := do(r, http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "route not found", decode(t, w)["error"])
}

func TestSecuredRoutesRequireToken(t *testing.T) {
	r, _ := setup(t, 10)
	w := do(r, http.MethodGet, "/api/bookings/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/bookings/me", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleGates(t *testing.T) {
	r, _ := setup(t, 10)
	student := tokenFor(t, 1, domain.RoleStudent)
	driver := tokenFor(t, 3, domain.RoleDriver)

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/vehicles", student, "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/bookings", driver, `{"schedule_id":1}`).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/location/driver", student, `{"latitude":11,"longitude":77}`).Code)
}

func TestStudentLogin(t *testing.T) {
	r, mock := setup(t, 10)
	hash, err := bcrypt.GenerateFromPassword([]byte("right-password"), bcrypt.MinCost)
	require.NoError(t, err)

	mock.ExpectQuery("FROM students").WithArgs("priya@jkkn.ac.in").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "role", "status", "password_hash", "failed_login_attempts", "locked_until"}).
			AddRow(int64(1), "Priya", "priya@jkkn.ac.in", "student", "active", string(hash), 0, nil))
	mock.ExpectExec("UPDATE students").WithArgs(sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := do(r, http.MethodPost, "/api/auth/login", "", `{"email":"priya@jkkn.ac.in","password":"right-password"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decode(t, w)["data"].(map[string]any)
	p, err := testTokens.Parse(data["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.UserID)
	assert.Equal(t, domain.RoleStudent, p.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginUnknownEmail(t *testing.T) {
	r, mock := setup(t, 10)
	mock.ExpectQuery("FROM drivers").WithArgs("ghost@jkkn.ac.in").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	w := do(r, http.MethodPost, "/api/auth/driver/login", "", `{"email":"ghost@jkkn.ac.in","password":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", decode(t, w)["code"])
}

func TestLoginIsRateLimited(t *testing.T) {
	r, _ := setup(t, 1)
	first := do(r, http.MethodPost, "/api/auth/staff/login", "", `{}`)
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := do(r, http.MethodPost, "/api/auth/staff/login", "", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	r, mock := setup(t, 10)
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(`{"event":"payment.captured"}`))
	req.Header.Set("X-Gateway-Signature", "deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookIgnoresUnhandledEvent(t *testing.T) {
	r, _ := setup(t, 10)
	body := `{"event":"refund.created","payload":{}}`
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(body))
	req.Header.Set("X-Gateway-Signature", gateway.Sign([]byte(body), "whsec"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "refund.created", data["event"])
	assert.Equal(t, false, data["changed"])
}

func TestCreateRouteValidation(t *testing.T) {
	r, mock := setup(t, 10)
	admin := tokenFor(t, 9, domain.RoleAdmin)

	w := do(r, http.MethodPost, "/api/routes", admin, `{"route_name":"Erode North","departure_time":"07:30","total_capacity":40}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decode(t, w)["code"])

	w = do(r, http.MethodPost, "/api/routes", admin, `{"route_number":"r4","route_name":"Erode North","start_location":"Erode","end_location":"Campus","departure_time":"7.30","total_capacity":40}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRouteAcceptsFormattedFee(t *testing.T) {
	r, mock := setup(t, 10)
	admin := tokenFor(t, 9, domain.RoleAdmin)

	mock.ExpectExec("INSERT INTO routes").
		WithArgs("R4", "Erode North", "Erode", "Campus", "07:30", "", 32.5, 40, int64(12500), "active", nil, nil).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery("FROM routes r").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "route_number", "route_name", "start_location", "end_location",
			"departure_time", "arrival_time", "distance_km", "total_capacity", "semester_fee", "status", "driver_id",
			"vehicle_id", "driver_name", "vehicle_number", "current_latitude", "current_longitude", "last_gps_update"}).
			AddRow(int64(5), "R4", "Erode North", "Erode", "Campus", "07:30", "", 32.5, 40, int64(12500), "active",
				nil, nil, "", "", nil, nil, nil))

	w := do(r, http.MethodPost, "/api/routes", admin, `{"route_number":"r4","route_name":"Erode North","start_location":"Erode","end_location":"Campus","departure_time":"07:30","distance_km":32.5,"total_capacity":40,"semester_fee":"Rs. 12,500"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(12500), data["semester_fee"])

	w = do(r, http.MethodPost, "/api/routes", admin, `{"route_number":"r5","route_name":"Salem","start_location":"Salem","end_location":"Campus","departure_time":"07:30","total_capacity":40,"semester_fee":"twelve"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRouteErrors(t *testing.T) {
	r, mock := setup(t, 10)
	student := tokenFor(t, 1, domain.RoleStudent)

	w := do(r, http.MethodGet, "/api/routes/abc", student, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	mock.ExpectQuery("FROM routes").WithArgs(int64(77)).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	w = do(r, http.MethodGet, "/api/routes/77", student, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "not_found", body["code"])
	assert.NotEmpty(t, body["request_id"])
}

func TestEmptyBodyRejected(t *testing.T) {
	r, _ := setup(t, 10)
	student := tokenFor(t, 1, domain.RoleStudent)
	w := do(r, http.MethodPost, "/api/grievances", student, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "request body is empty", decode(t, w)["error"])
}

func TestRoutesTableListsRegisteredRoutes(t *testing.T) {
	r, _ := setup(t, 10)
	w := do(r, http.MethodGet, "/api/routes-table", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Routes []struct {
			Method string `json:"method"`
			Path   string `json:"path"`
		} `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	seen := map[string]bool{}
	for _, rt := range out.Routes {
		seen[rt.Method+" "+rt.Path] = true
	}
	assert.True(t, seen["POST /api/payments/webhook"])
	assert.True(t, seen["GET /api/location/routes/:id/live"])
	assert.True(t, seen["PUT /api/grievances/:id/status"])
}
