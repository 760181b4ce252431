package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/datavault/internal/common"
	"github.com/dmitrijs2005/datavault/internal/logging"
	"github.com/dmitrijs2005/datavault/internal/server/backend"
	"github.com/dmitrijs2005/datavault/internal/server/backend/memory"
	"github.com/dmitrijs2005/datavault/internal/server/models"
	"github.com/dmitrijs2005/datavault/internal/server/selector"
	"github.com/dmitrijs2005/datavault/internal/server/service"
	"github.com/dmitrijs2005/datavault/internal/server/session"
)

// newTestServer runs the full router over a seeded in-memory backend.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := logging.NewSlogLogger(slog.New(slog.DiscardHandler))
	ref := memory.New("", memory.WithLatency(0, 0))
	sel := selector.New(nil, nil, ref, logger)
	sel.Probe(context.Background())

	svc := service.New(sel, session.NewManager(sel.Active), nil, logger)
	srv := httptest.NewServer(NewRouter(svc, logger))
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, token string, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var envelope map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func loginToken(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	body := `{"email":"` + backend.SeedEmail + `","password":"` + backend.SeedPassword + `"}`
	resp, env := doRequest(t, srv, http.MethodPost, "/api/auth/login", "", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data struct {
		Session models.Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env["data"], &data))
	require.NotEmpty(t, data.Session.AccessToken)
	return data.Session.AccessToken
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doRequest(t, srv, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `"ok"`, string(env["status"]))
	assert.NotEmpty(t, env["timestamp"])
}

func TestLogin_Scenarios(t *testing.T) {
	srv := newTestServer(t)

	t.Run("seeded credentials", func(t *testing.T) {
		token := loginToken(t, srv)
		assert.True(t, strings.HasPrefix(token, "local_"))
	})

	t.Run("wrong password", func(t *testing.T) {
		resp, env := doRequest(t, srv, http.MethodPost, "/api/auth/login", "",
			`{"email":"`+backend.SeedEmail+`","password":"nope"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.NotEmpty(t, env["error"])
	})

	t.Run("missing fields", func(t *testing.T) {
		resp, _ := doRequest(t, srv, http.MethodPost, "/api/auth/login", "", `{"email":"a@b.c"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid json", func(t *testing.T) {
		resp, _ := doRequest(t, srv, http.MethodPost, "/api/auth/login", "", `{not json`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSession_NullForUnknownToken(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doRequest(t, srv, http.MethodGet, "/api/auth/session", "jwt_whatever", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var data struct {
		Session *models.Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env["data"], &data))
	assert.Nil(t, data.Session)
}

func TestSession_RoundTrip(t *testing.T) {
	srv := newTestServer(t)
	token := loginToken(t, srv)

	resp, env := doRequest(t, srv, http.MethodGet, "/api/auth/session", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var data struct {
		Session *models.Session `json:"session"`
	}
	require.NoError(t, json.Unmarshal(env["data"], &data))
	require.NotNil(t, data.Session)
	assert.Equal(t, token, data.Session.AccessToken)
	assert.Equal(t, backend.SeedEmail, data.Session.User.Email)
}

func TestLogout_RevokesToken(t *testing.T) {
	srv := newTestServer(t)
	token := loginToken(t, srv)

	resp, env := doRequest(t, srv, http.MethodPost, "/api/auth/logout", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env["data"]), "signed out")

	// the revoked token no longer opens the data surface
	resp, _ = doRequest(t, srv, http.MethodGet, "/api/data", token, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// revoking again is still a success
	resp, _ = doRequest(t, srv, http.MethodPost, "/api/auth/logout", token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestData_RequiresBearerToken(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doRequest(t, srv, http.MethodGet, "/api/data", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(env["error"]), "missing bearer token")

	resp, env = doRequest(t, srv, http.MethodGet, "/api/data", "local_no-such-user", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(env["error"]), "invalid token")
}

func TestData_CRUD(t *testing.T) {
	srv := newTestServer(t)
	token := loginToken(t, srv)

	var items []models.DataItem

	t.Run("seeded items", func(t *testing.T) {
		resp, env := doRequest(t, srv, http.MethodGet, "/api/data", token, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, json.Unmarshal(env["data"], &items))
		assert.Len(t, items, 2)
	})

	var created models.DataItem

	t.Run("create", func(t *testing.T) {
		resp, env := doRequest(t, srv, http.MethodPost, "/api/data", token,
			`{"name":"Backup key","description":"offsite","status":"active","quantity":3}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		require.NoError(t, json.Unmarshal(env["data"], &created))
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "Backup key", created.Name)
		assert.Equal(t, 3.0, created.Quantity)
	})

	t.Run("create requires name", func(t *testing.T) {
		resp, env := doRequest(t, srv, http.MethodPost, "/api/data", token, `{"description":"nameless"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, string(env["error"]), "name is required")
	})

	t.Run("newest first", func(t *testing.T) {
		resp, env := doRequest(t, srv, http.MethodGet, "/api/data", token, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var listed []models.DataItem
		require.NoError(t, json.Unmarshal(env["data"], &listed))
		require.Len(t, listed, 3)
		assert.Equal(t, created.ID, listed[0].ID)
	})

	t.Run("update", func(t *testing.T) {
		resp, env := doRequest(t, srv, http.MethodPut, "/api/data/"+created.ID, token,
			`{"status":"archived"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated models.DataItem
		require.NoError(t, json.Unmarshal(env["data"], &updated))
		assert.Equal(t, "archived", updated.Status)
		assert.Equal(t, created.Name, updated.Name, "unpatched fields keep their values")
	})

	t.Run("update unknown id", func(t *testing.T) {
		resp, _ := doRequest(t, srv, http.MethodPut, "/api/data/no-such-item", token, `{"status":"x"}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("delete returns last state", func(t *testing.T) {
		resp, env := doRequest(t, srv, http.MethodDelete, "/api/data/"+created.ID, token, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var data struct {
			Message string          `json:"message"`
			Item    models.DataItem `json:"item"`
		}
		require.NoError(t, json.Unmarshal(env["data"], &data))
		assert.Equal(t, "item deleted", data.Message)
		assert.Equal(t, created.ID, data.Item.ID)
		assert.Equal(t, "archived", data.Item.Status)
	})

	t.Run("delete again is not found", func(t *testing.T) {
		resp, _ := doRequest(t, srv, http.MethodDelete, "/api/data/"+created.ID, token, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestBackendEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, env := doRequest(t, srv, http.MethodGet, "/api/backend", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state struct {
		Backend string `json:"backend"`
		State   string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(env["data"], &state))
	assert.Equal(t, "local", state.Backend)
	assert.Equal(t, "reference_active", state.State)

	resp, env = doRequest(t, srv, http.MethodPost, "/api/backend/reprobe", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env["data"], &state))
	assert.Equal(t, "reference_active", state.State)
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("login: %w", common.ErrorValidation), http.StatusBadRequest},
		{"unauthorized", common.ErrorUnauthorized, http.StatusUnauthorized},
		{"not found", fmt.Errorf("db error: %w", common.ErrorNotFound), http.StatusNotFound},
		{"anything else", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFromError(tt.err))
		})
	}
}
