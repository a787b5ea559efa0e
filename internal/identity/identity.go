package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/drydock-platform/drydock/internal/entity"
)

// Provider resolves an owner org id to its platform username.
type Provider interface {
	UsernameForOwner(ctx context.Context, ownerID int64) (string, error)
}

// HTTPProvider talks to the identity service. A 404 maps to
// entity.ErrNotFound: the account is gone, retrying will not bring it back.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *HTTPProvider) UsernameForOwner(ctx context.Context, ownerID int64) (string, error) {
	url := fmt.Sprintf("%s/orgs/%d", p.baseURL, ownerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity lookup: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("owner %d: %w", ownerID, entity.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("identity lookup: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("identity lookup: decode: %w", err)
	}
	if body.Login == "" {
		return "", fmt.Errorf("owner %d: empty login: %w", ownerID, entity.ErrNotFound)
	}
	return body.Login, nil
}
