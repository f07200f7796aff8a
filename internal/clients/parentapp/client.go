// Package parentapp talks to the institution's identity provider and
// student/staff directory (the "parent app").
package parentapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tms/internal/domain"
)

const serviceName = "parent app"

type Config struct {
	BaseURL     string
	AppID       string
	APIKey      string
	RedirectURI string
	HTTPClient  *http.Client
}

type Client struct {
	baseURL     string
	appID       string
	apiKey      string
	redirectURI string
	httpClient  *http.Client
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		appID:       cfg.AppID,
		apiKey:      cfg.APIKey,
		redirectURI: cfg.RedirectURI,
		httpClient:  hc,
	}
}

// Configured reports whether OAuth and directory calls can be made.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.appID != "" && c.apiKey != ""
}

// Token is the code-exchange response.
type Token struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	User         *Profile `json:"user,omitempty"`
}

// Profile is the authenticated user as the parent app describes it.
type Profile struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Role        string `json:"role"`
	RollNumber  string `json:"roll_number"`
	Phone       string `json:"phone_number"`
	Institution string `json:"institution_id,omitempty"`
}

// DirectoryStudent is a row of the parent app's student directory.
type DirectoryStudent struct {
	ID          string `json:"id"`
	FullName    string `json:"student_name"`
	RollNumber  string `json:"roll_number"`
	Email       string `json:"student_email"`
	Phone       string `json:"student_mobile"`
	Department  string `json:"department_name"`
	Program     string `json:"program_name"`
	Institution string `json:"institution_name"`
}

// DirectoryStaff is a row of the parent app's staff directory.
type DirectoryStaff struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Designation string `json:"designation"`
	Department  string `json:"department_name"`
}

// AuthorizeURL builds the consent URL the browser is sent to.
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("app_id", c.appID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "read write profile")
	q.Set("state", state)
	return c.baseURL + "/api/auth/child-app/consent?" + q.Encode()
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (Token, error) {
	body := map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"app_id":       c.appID,
		"api_key":      c.apiKey,
		"redirect_uri": c.redirectURI,
	}
	var out Token
	if err := c.do(ctx, http.MethodPost, "/api/auth/child-app/token", body, "", &out); err != nil {
		return Token{}, err
	}
	if out.AccessToken == "" {
		return Token{}, domain.UpstreamError{Service: serviceName, Err: fmt.Errorf("empty access token")}
	}
	return out, nil
}

// FetchProfile validates the access token and returns its user.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	var out struct {
		Valid bool    `json:"valid"`
		User  Profile `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/child-app/validate", map[string]string{
		"access_token": accessToken,
		"app_id":       c.appID,
	}, "", &out); err != nil {
		return Profile{}, err
	}
	if !out.Valid || out.User.Email == "" {
		return Profile{}, domain.UnauthorizedError{Msg: "parent app rejected access token"}
	}
	return out.User, nil
}

// SearchStudents looks students up by name, roll number or email.
func (c *Client) SearchStudents(ctx context.Context, query string) ([]DirectoryStudent, error) {
	var out struct {
		Data []DirectoryStudent `json:"data"`
	}
	path := "/api/api-management/students?" + url.Values{"search": {query}, "limit": {"50"}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, c.apiKey, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = []DirectoryStudent{}
	}
	return out.Data, nil
}

// SearchStaff looks staff up by name or email.
func (c *Client) SearchStaff(ctx context.Context, query string) ([]DirectoryStaff, error) {
	var out struct {
		Data []DirectoryStaff `json:"data"`
	}
	path := "/api/api-management/staff?" + url.Values{"search": {query}, "limit": {"50"}}.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, c.apiKey, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = []DirectoryStaff{}
	}
	return out.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, bearer string, dst any) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
		req.Header.Set("x-api-key", bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.UpstreamError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.NotFoundError{Resource: "parent app record"}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return domain.UnauthorizedError{Msg: "parent app rejected the request", Err: fmt.Errorf("%s", strings.TrimSpace(string(raw)))}
	case resp.StatusCode >= 300:
		return domain.UpstreamError{Service: serviceName, Status: resp.StatusCode}
	}

	if dst == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.UpstreamError{Service: serviceName, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
