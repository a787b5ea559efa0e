package fleet

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Manager retires the compute behind a lost dock. Fire-and-forget: the
// cascade never blocks on it.
type Manager interface {
	TerminateComputeResource(ctx context.Context, hostAddress string)
}

// HTTPManager posts terminations to the fleet service.
type HTTPManager struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewHTTPManager(baseURL string, log zerolog.Logger) *HTTPManager {
	return &HTTPManager{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

func (m *HTTPManager) TerminateComputeResource(ctx context.Context, hostAddress string) {
	body := url.Values{"host": {hostAddress}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/terminations", m.baseURL),
		strings.NewReader(body.Encode()))
	if err != nil {
		m.log.Error().Err(err).Str("host", hostAddress).Msg("build terminate request failed")
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := m.client.Do(req)
	if err != nil {
		m.log.Error().Err(err).Str("host", hostAddress).Msg("terminate compute resource failed")
		return
	}
	resp.Body.Close()
	m.log.Info().Str("host", hostAddress).Int("status", resp.StatusCode).Msg("requested compute termination")
}
