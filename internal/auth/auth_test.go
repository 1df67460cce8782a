package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "sipkl"
)

func TestAllow(t *testing.T) {
	tests := []struct {
		name     string
		session  Session
		required Role
		want     bool
	}{
		{"student as student", Session{"S1", RoleSiswa}, RoleSiswa, true},
		{"student as teacher", Session{"S1", RoleSiswa}, RoleGuru, false},
		{"teacher as teacher", Session{"G1", RoleGuru}, RoleGuru, true},
		{"teacher as admin", Session{"G1", RoleGuru}, RoleAdmin, false},
		{"teacher as student", Session{"G1", RoleGuru}, RoleSiswa, false},
		{"admin as anything", Session{"A1", RoleAdmin}, RoleSiswa, true},
		{"empty session", Session{}, RoleSiswa, false},
		{"unknown role", Session{"X", "kepsek"}, "kepsek", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allow(tt.session, tt.required))
		})
	}
}

func TestIssueParse(t *testing.T) {
	tok, err := Issue("S1", RoleSiswa, testIssuer, testKey, time.Hour)
	require.NoError(t, err)

	s, err := Parse(tok.AccessToken, testKey, testIssuer)
	require.NoError(t, err)
	assert.Equal(t, Session{Subject: "S1", Role: RoleSiswa}, s)

	_, err = Parse(tok.AccessToken, "other-key", testIssuer)
	assert.Error(t, err)

	_, err = Parse(tok.AccessToken, testKey, "someone-else")
	assert.Error(t, err)

	expired, err := Issue("S1", RoleSiswa, testIssuer, testKey, -time.Minute)
	require.NoError(t, err)
	_, err = Parse(expired.AccessToken, testKey, testIssuer)
	assert.Error(t, err)
}

func TestIssueRejectsBadInput(t *testing.T) {
	_, err := Issue("", RoleAdmin, testIssuer, testKey, time.Hour)
	assert.Error(t, err)

	_, err = Issue("X", "kepsek", testIssuer, testKey, time.Hour)
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func token(t *testing.T, subject string, role Role) string {
	t.Helper()
	tok, err := Issue(subject, role, testIssuer, testKey, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok.AccessToken
}

func serve(r *gin.Engine, method, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticateRequire(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guru", Authenticate(testKey, testIssuer), Require(RoleGuru), func(c *gin.Context) {
		s, _ := FromContext(c.Request.Context())
		c.String(http.StatusOK, s.Subject)
	})

	tests := []struct {
		name     string
		authz    string
		wantCode int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"student forbidden", token(t, "S1", RoleSiswa), http.StatusForbidden},
		{"teacher allowed", token(t, "G1", RoleGuru), http.StatusOK},
		{"admin allowed", token(t, "A1", RoleAdmin), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, http.MethodGet, "/guru", tt.authz)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestCronOrAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := func(c *gin.Context) { c.Status(http.StatusOK) }

	open := gin.New()
	open.POST("/trigger", CronOrAdmin("", testKey, testIssuer), handler)
	assert.Equal(t, http.StatusOK, serve(open, http.MethodPost, "/trigger", "").Code)

	guarded := gin.New()
	guarded.POST("/trigger", CronOrAdmin("cron-secret", testKey, testIssuer), handler)

	tests := []struct {
		name     string
		authz    string
		wantCode int
	}{
		{"no credentials", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer nope", http.StatusUnauthorized},
		{"cron secret", "Bearer cron-secret", http.StatusOK},
		{"admin token", token(t, "A1", RoleAdmin), http.StatusOK},
		{"teacher token", token(t, "G1", RoleGuru), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, serve(guarded, http.MethodPost, "/trigger", tt.authz).Code)
		})
	}
}
