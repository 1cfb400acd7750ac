package collaborator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxResponseBytes = 1 << 20

// jsonClient speaks JSON to one collaborator service and maps transport and
// status failures to categorized errors named after that collaborator.
type jsonClient struct {
	name    string
	baseURL string
	client  *http.Client
}

func newJSONClient(name, baseURL string, client *http.Client) jsonClient {
	if client == nil {
		client = http.DefaultClient
	}
	return jsonClient{name: name, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (c jsonClient) get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return NewError(ErrorInternal, c.name, "build request", err)
	}
	return c.do(ctx, req, out)
}

func (c jsonClient) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return NewError(ErrorInternal, c.name, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return NewError(ErrorInternal, c.name, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(ctx, req, out)
}

func (c jsonClient) do(ctx context.Context, req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return NewError(ErrorTimeout, c.name, "request cancelled", ctx.Err())
		}
		return NewError(ErrorOutage, c.name, "request failed", err)
	}
	defer resp.Body.Close()

	if err := c.statusError(resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return err
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return NewError(ErrorBadData, c.name, "decode response", err)
	}
	return nil
}

func (c jsonClient) statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return NewError(ErrorNotFound, c.name, "nothing published", nil)
	case code == http.StatusTooManyRequests:
		return NewError(ErrorRateLimited, c.name, "rate limited", nil)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return NewError(ErrorAuthentication, c.name, fmt.Sprintf("status %d", code), nil)
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return NewError(ErrorTimeout, c.name, fmt.Sprintf("status %d", code), nil)
	case code >= 500:
		return NewError(ErrorOutage, c.name, fmt.Sprintf("status %d", code), nil)
	default:
		return NewError(ErrorBadData, c.name, fmt.Sprintf("unexpected status %d", code), nil)
	}
}
