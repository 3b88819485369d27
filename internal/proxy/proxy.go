// Package proxy forwards /api/* requests that no local route handles to the
// upstream backend service.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Prefix is stripped from incoming paths before forwarding.
const Prefix = "/api"

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 10 << 20

var ErrInvalidUpstreamBody = errors.New("upstream response is not valid JSON")

// Proxy forwards requests to a fixed upstream base URL.
type Proxy struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Proxy {
	return &Proxy{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "proxy").Logger(),
	}
}

// Allowed reports whether method may be forwarded.
func Allowed(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// Forward sends method and body to baseURL/subPath and returns the upstream
// body. The upstream status code is not inspected. An empty upstream body,
// as sent with 204 No Content, yields a nil message and no error.
func (p *Proxy) Forward(ctx context.Context, method, subPath, rawQuery, contentType string, body io.Reader) (json.RawMessage, error) {
	target := p.baseURL + "/" + strings.TrimLeft(subPath, "/")
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	if contentType == "" && body != nil && method != http.MethodGet {
		contentType = "application/json"
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		p.log.Debug().Str("method", method).Str("target", target).Int("upstream_status", resp.StatusCode).Msg("Proxied request without body")
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w (status %d)", ErrInvalidUpstreamBody, resp.StatusCode)
	}

	p.log.Debug().
		Str("method", method).
		Str("target", target).
		Int("upstream_status", resp.StatusCode).
		Msg("Proxied request")
	return json.RawMessage(data), nil
}

// Handle is the gin handler for the wildcard route. The upstream JSON is
// always returned with status 200.
func (p *Proxy) Handle(c *gin.Context) {
	if !Allowed(c.Request.Method) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
		return
	}

	subPath := strings.TrimPrefix(c.Request.URL.Path, Prefix)
	var body io.Reader
	if c.Request.Method != http.MethodGet && c.Request.Body != nil {
		body = c.Request.Body
	}

	data, err := p.Forward(c.Request.Context(), c.Request.Method, subPath, c.Request.URL.RawQuery, c.GetHeader("Content-Type"), body)
	if err != nil {
		p.log.Error().Err(err).Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Msg("Proxy request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reach upstream service"})
		return
	}
	if data == nil {
		c.Status(http.StatusOK)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}
