package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/datavault/internal/server/models"
)

// Remote speaks the same HTTP JSON surface this server exposes, so a
// deployment can front another DataVault instance and degrade to its
// local backends when that instance is unreachable.
type Remote struct {
	base   string
	client *http.Client
}

// NewRemote builds a client for the API rooted at base
// (e.g. "http://upstream:8080").
func NewRemote(base string) *Remote {
	return &Remote{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// do performs one API call. Every failure mode (dial error, non-2xx
// status, malformed body) is reported as an error so the caller can
// fall back to a local backend.
func (r *Remote) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("transport error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("malformed response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if env.Error != "" {
			return fmt.Errorf("remote error (%d): %s", resp.StatusCode, env.Error)
		}
		return fmt.Errorf("remote error: unexpected status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("malformed response data: %w", err)
		}
	}
	return nil
}

func (r *Remote) Login(ctx context.Context, email, password string) (*models.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var data struct {
		Session models.Session `json:"session"`
	}
	if err := r.do(ctx, http.MethodPost, "/api/auth/login", "", body, &data); err != nil {
		return nil, err
	}
	return &data.Session, nil
}

func (r *Remote) Logout(ctx context.Context, token string) error {
	return r.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil)
}

func (r *Remote) Session(ctx context.Context, token string) (*models.Session, error) {
	var data struct {
		Session *models.Session `json:"session"`
	}
	if err := r.do(ctx, http.MethodGet, "/api/auth/session", token, nil, &data); err != nil {
		return nil, err
	}
	return data.Session, nil
}

func (r *Remote) FetchItems(ctx context.Context, token string) ([]models.DataItem, error) {
	var items []models.DataItem
	if err := r.do(ctx, http.MethodGet, "/api/data", token, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Remote) CreateItem(ctx context.Context, token string, payload models.ItemPayload) (*models.DataItem, error) {
	var item models.DataItem
	if err := r.do(ctx, http.MethodPost, "/api/data", token, payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Remote) UpdateItem(ctx context.Context, token, id string, patch models.ItemPatch) (*models.DataItem, error) {
	var item models.DataItem
	if err := r.do(ctx, http.MethodPut, "/api/data/"+id, token, patch, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Remote) DeleteItem(ctx context.Context, token, id string) (*models.DataItem, error) {
	var data struct {
		Message string          `json:"message"`
		Item    models.DataItem `json:"item"`
	}
	if err := r.do(ctx, http.MethodDelete, "/api/data/"+id, token, nil, &data); err != nil {
		return nil, err
	}
	return &data.Item, nil
}
