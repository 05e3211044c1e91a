package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/nordhen/credgate/internal/config"
	"github.com/nordhen/credgate/internal/pkg/codeassist"
	"github.com/nordhen/credgate/internal/service"
)

type upstreamClient struct {
	client     *req.Client
	endpoint   string
	apiVersion string
}

// NewUpstreamClient issues authenticated calls to the protected API. Non-2xx
// responses come back as results so the retry engine can interpret each
// status; only transport failures are errors.
func NewUpstreamClient(cfg *config.Config) service.UpstreamClient {
	timeout := time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	client := req.C().
		SetTimeout(timeout)
	if proxyURL := strings.TrimSpace(cfg.Upstream.ProxyURL); proxyURL != "" {
		client.SetProxyURL(proxyURL)
	}

	return &upstreamClient{
		client:     client,
		endpoint:   cfg.Upstream.Endpoint,
		apiVersion: cfg.Upstream.APIVersion,
	}
}

func (c *upstreamClient) CallMethod(ctx context.Context, method, accessToken string, body []byte) (*service.UpstreamResult, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBearerAuthToken(accessToken).
		SetBodyBytes(body).
		Post(codeassist.MethodURL(c.endpoint, c.apiVersion, method))
	if err != nil {
		return nil, fmt.Errorf("upstream call %s: %w", method, err)
	}

	respBody, err := resp.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("upstream read %s: %w", method, err)
	}

	return &service.UpstreamResult{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Header:     resp.Header,
	}, nil
}
