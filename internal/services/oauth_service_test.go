package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tms/internal/clients/parentapp"
	"tms/internal/domain"
	"tms/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuthCallbackCoalescesSameCode(t *testing.T) {
	var exchanges int32
	arrived := make(chan struct{}, 4)
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/child-app/token":
			atomic.AddInt32(&exchanges, 1)
			arrived <- struct{}{}
			<-release
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "at-1",
				"token_type":   "Bearer",
				"user":         map[string]any{"id": "u-1", "email": "Priya@JKKN.ac.in", "full_name": "Priya  S"},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	db, mock := newMock(t)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 2; i++ {
		mock.ExpectQuery("SELECT id FROM students WHERE email").WithArgs("priya@jkkn.ac.in").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
		mock.ExpectExec("UPDATE students").WillReturnResult(sqlmock.NewResult(0, 1))
	}

	svc := OAuthService{
		Client:   parentapp.New(parentapp.Config{BaseURL: srv.URL, AppID: "tms", APIKey: "k", HTTPClient: srv.Client()}),
		Students: repositories.StudentRepository{DB: db},
		Tokens:   TokenIssuer{Secret: []byte("test-secret"), TTL: time.Hour},
	}

	var wg sync.WaitGroup
	sessions := make([]Session, 2)
	errs := make([]error, 2)
	run := func(i int) {
		defer wg.Done()
		sessions[i], errs[i] = svc.Callback(context.Background(), "code-coalesce")
	}

	wg.Add(1)
	go run(0)
	<-arrived
	wg.Add(1)
	go run(1)
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, int64(5), sessions[i].User.UserID)
		assert.Equal(t, "priya@jkkn.ac.in", sessions[i].User.Email)
		assert.Equal(t, "Priya S", sessions[i].Name)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&exchanges))
}

func TestOAuthCallbackRejectedCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	svc := OAuthService{
		Client: parentapp.New(parentapp.Config{BaseURL: srv.URL, AppID: "tms", APIKey: "k", HTTPClient: srv.Client()}),
		Tokens: TokenIssuer{Secret: []byte("test-secret")},
	}
	_, err := svc.Callback(context.Background(), "code-rejected")
	assert.True(t, domain.IsUnauthorized(err))
}

func TestOAuthAuthorizeRequiresConfig(t *testing.T) {
	_, _, err := OAuthService{Client: parentapp.New(parentapp.Config{})}.Authorize()
	assert.True(t, domain.IsInternal(err))

	url, state, err := OAuthService{Client: parentapp.New(parentapp.Config{BaseURL: "https://my.jkkn.ac.in", AppID: "tms", APIKey: "k"})}.Authorize()
	require.NoError(t, err)
	assert.NotEmpty(t, state)
	assert.True(t, strings.Contains(url, state))
}
