package parentapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"tms/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", AppID: "tms", APIKey: "secret-key", RedirectURI: "http://localhost:3000/cb"})
}

func TestAuthorizeURL(t *testing.T) {
	c := New(Config{BaseURL: "https://my.jkkn.ac.in/", AppID: "tms", APIKey: "k", RedirectURI: "http://localhost:3000/cb"})

	u, err := url.Parse(c.AuthorizeURL("state-123"))
	require.NoError(t, err)
	assert.Equal(t, "my.jkkn.ac.in", u.Host)
	assert.Equal(t, "/api/auth/child-app/consent", u.Path)
	assert.Equal(t, "tms", u.Query().Get("app_id"))
	assert.Equal(t, "code", u.Query().Get("response_type"))
	assert.Equal(t, "state-123", u.Query().Get("state"))
	assert.Equal(t, "http://localhost:3000/cb", u.Query().Get("redirect_uri"))
}

func TestExchangeCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/child-app/token", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "authorization_code", body["grant_type"])
		assert.Equal(t, "abc", body["code"])
		assert.Equal(t, "secret-key", body["api_key"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"user":         map[string]string{"id": "u1", "email": "arun@jkkn.ac.in", "full_name": "Arun"},
		})
	})

	tok, err := c.ExchangeCode(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	require.NotNil(t, tok.User)
	assert.Equal(t, "arun@jkkn.ac.in", tok.User.Email)
}

func TestExchangeCodeRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	})

	_, err := c.ExchangeCode(context.Background(), "used-code")
	require.Error(t, err)
	assert.True(t, domain.IsUnauthorized(err))
}

func TestExchangeCodeUpstreamFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.ExchangeCode(context.Background(), "abc")
	require.Error(t, err)
	assert.True(t, domain.IsUpstream(err))
}

func TestFetchProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"valid": true,
			"user":  map[string]string{"id": "u1", "email": "arun@jkkn.ac.in", "full_name": "Arun", "roll_number": "22CS001"},
		})
	})

	p, err := c.FetchProfile(context.Background(), "at-1")
	require.NoError(t, err)
	assert.Equal(t, "22CS001", p.RollNumber)
}

func TestSearchStudentsSendsAPIKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/api-management/students", r.URL.Path)
		assert.Equal(t, "22CS", r.URL.Query().Get("search"))
		assert.Equal(t, "secret-key", r.Header.Get("x-api-key"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"id": "s1", "student_name": "Arun", "roll_number": "22CS001"}},
		})
	})

	list, err := c.SearchStudents(context.Background(), "22CS")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Arun", list[0].FullName)
}

func TestSearchStaffNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.SearchStaff(context.Background(), "nobody")
	assert.True(t, domain.IsNotFound(err))
}
