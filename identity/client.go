package identity

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
)

type httpProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider создает клиент HTTP API identity provider-а.
func NewHTTPProvider(baseURL, apiKey string) Provider {
	return &httpProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *httpProvider) LookupByEmail(ctx context.Context, email string) (*User, error) {
	query := url.Values{}
	query.Set("email_address", email)

	var users []User
	if err := p.get(ctx, "v1/users?"+query.Encode(), &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return &users[0], nil
}

func (p *httpProvider) Create(ctx context.Context, email, firstName string) (*User, error) {
	body := map[string]interface{}{
		"email_address": []string{email},
	}
	if firstName != "" {
		body["first_name"] = firstName
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode create user request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/users", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider create user failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, statusError("create user", resp)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode create user response: %w", err)
	}
	return &user, nil
}

func (p *httpProvider) GetBatch(ctx context.Context, ids []string) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := url.Values{}
	for _, id := range ids {
		query.Add("user_id", id)
	}

	var users []User
	if err := p.get(ctx, "v1/users?"+query.Encode(), &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (p *httpProvider) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+path, nil)
	if err != nil {
		return err
	}
	p.setHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("lookup", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode identity provider response: %w", err)
	}
	return nil
}

func (p *httpProvider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("identity provider %s returned %d: %s", op, resp.StatusCode, strings.TrimSpace(string(raw)))
}
