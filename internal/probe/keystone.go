package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/footprintai/keystone-probe/internal/config"
)

// maxResponseBody bounds how much of the token response is decoded
const maxResponseBody = 1 << 20

// Request body types for the identity v3 "password" method

type authRequest struct {
	Auth authBody `json:"auth"`
}

type authBody struct {
	Identity identity `json:"identity"`
	Scope    *scope   `json:"scope,omitempty"`
}

type identity struct {
	Methods  []string       `json:"methods"`
	Password passwordMethod `json:"password"`
}

type passwordMethod struct {
	User user `json:"user"`
}

type user struct {
	Name     *string `json:"name"`
	Domain   domain  `json:"domain"`
	Password *string `json:"password"`
}

type domain struct {
	Name *string `json:"name"`
}

type scope struct {
	Project project `json:"project"`
}

type project struct {
	Name   *string `json:"name"`
	Domain domain  `json:"domain"`
}

// optional turns a config lookup into a JSON value, null when absent
func optional(v string, found bool) *string {
	if !found {
		return nil
	}
	return &v
}

// newAuthRequest builds the password authentication body from params.
// A project scope is only requested when scoped is set and project_name
// is configured.
func newAuthRequest(params config.ConnectionParams, scoped bool) authRequest {
	req := authRequest{
		Auth: authBody{
			Identity: identity{
				Methods: []string{"password"},
				Password: passwordMethod{
					User: user{
						Name:     optional(params.Username()),
						Domain:   domain{Name: optional(params.UserDomainName())},
						Password: optional(params.Password()),
					},
				},
			},
		},
	}

	if name, found := params.ProjectName(); scoped && found {
		req.Auth.Scope = &scope{
			Project: project{
				Name:   &name,
				Domain: domain{Name: optional(params.ProjectDomainName())},
			},
		}
	}

	return req
}

// tokenClient issues token requests against one identity service
type tokenClient struct {
	httpClient *http.Client
}

func newTokenClient(dialer Dialer, tlsConfig *tls.Config, timeout time.Duration) *tokenClient {
	return &tokenClient{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         dialer.DialContext,
				TLSClientConfig:     tlsConfig,
				TLSHandshakeTimeout: timeout,
				DisableKeepAlives:   true,
			},
		},
	}
}

// close releases idle transport connections
func (c *tokenClient) close() {
	c.httpClient.CloseIdleConnections()
}

// doRequest posts body as JSON to url
func (c *tokenClient) doRequest(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.httpClient.Do(req)
}

// issueToken requests a token. A response that does not carry one is
// returned as an error wrapping ErrAuthRejected; any other error is a
// transport fault.
func (c *tokenClient) issueToken(ctx context.Context, url string, body authRequest) error {
	resp, err := c.doRequest(ctx, url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		// drain so the connection is released cleanly
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
		return fmt.Errorf("%w: unexpected status %d", ErrAuthRejected, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var result map[string]json.RawMessage
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		return fmt.Errorf("%w: failed to parse response: %w", ErrAuthRejected, err)
	}
	if _, found := result["token"]; !found {
		return fmt.Errorf("%w: response has no token", ErrAuthRejected)
	}

	return nil
}
