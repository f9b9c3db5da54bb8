package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/foxseedlab/tsuyaku/internal/translation"
)

const (
	defaultTimeout       = 30 * time.Second
	maxResponseBodyBytes = 1 << 20
	requestFailedMessage = "Translation request failed"
)

// HTTPGateway calls a translation gateway server over HTTP.
type HTTPGateway struct {
	url    string
	client *http.Client
}

func NewHTTPGateway(url string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPGateway{url: url, client: &http.Client{Timeout: timeout}}
}

func (g *HTTPGateway) Translate(ctx context.Context, req translation.GatewayRequest) (translation.GatewayResponse, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return translation.GatewayResponse{}, fmt.Errorf("failed to encode translation request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(b))
	if err != nil {
		return translation.GatewayResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return translation.GatewayResponse{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return translation.GatewayResponse{}, fmt.Errorf("failed to read translation response: %w", err)
	}

	var out translation.GatewayResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Rejections are answers, not transport failures.
		if err := json.Unmarshal(body, &out); err != nil || (out.Error == "" && out.Message == "") {
			out = translation.GatewayResponse{Error: fmt.Sprintf("%s: %s", requestFailedMessage, resp.Status)}
		}
		out.Success = false
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return translation.GatewayResponse{}, fmt.Errorf("failed to decode translation response: %w", err)
	}
	return out, nil
}
