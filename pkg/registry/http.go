package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/log"
)

type (
	// HTTPCapability mounts a remote tool as a capability. The remote side
	// receives a JSON POST of the call arguments and answers with an
	// InvokeResponse
	HTTPCapability struct {
		httpClient *http.Client
		endpoint   string
	}

	// InvokeRequest is the wire request sent to a remote capability
	InvokeRequest struct {
		Arguments api.CallArgs `json:"arguments"`
	}

	// InvokeResponse is the wire response from a remote capability
	InvokeResponse struct {
		Output  string `json:"output,omitempty"`
		Error   string `json:"error,omitempty"`
		Success bool   `json:"success"`
	}
)

var (
	ErrCapabilityFailed = errors.New("capability returned success=false")
	ErrHTTPStatus       = errors.New("capability returned HTTP error")

	_ api.Capability = (*HTTPCapability)(nil)
)

// NewHTTPCapability creates a capability backed by the given endpoint
func NewHTTPCapability(
	endpoint string, timeout time.Duration,
) *HTTPCapability {
	return &HTTPCapability{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		endpoint: endpoint,
	}
}

// Invoke POSTs the arguments to the remote endpoint and returns its output
func (c *HTTPCapability) Invoke(
	ctx context.Context, args api.CallArgs,
) (string, error) {
	body, err := json.Marshal(InvokeRequest{Arguments: args})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		slog.Error("Capability request failed",
			slog.String("endpoint", c.endpoint),
			slog.Duration("duration", time.Since(start)),
			log.Error(err))
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("Capability HTTP error",
			slog.String("endpoint", c.endpoint),
			slog.Int("status_code", resp.StatusCode))
		return "", fmt.Errorf("%w: HTTP %d", ErrHTTPStatus, resp.StatusCode)
	}

	var response InvokeResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", err
	}

	if !response.Success {
		if response.Error == "" {
			return "", ErrCapabilityFailed
		}
		return "", fmt.Errorf("%w: %s", ErrCapabilityFailed, response.Error)
	}
	return response.Output, nil
}
