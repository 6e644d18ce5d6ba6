package vcenter

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/m-erhardt/check-vcenter/internal/config"
)

// sessionHeader carries the session token on authenticated requests.
const sessionHeader = "vmware-api-session-id"

// ErrNotFound is returned for 404 responses, e.g. when a platform does not
// surface the VMware Tools endpoint for a VM.
var ErrNotFound = errors.New("resource not found")

// Client talks to the vSphere Automation REST API. One Client owns at most
// one API session, created by Login and invalidated by Logout.
type Client struct {
	cfg        *config.Config
	log        *zap.Logger
	httpClient *http.Client
	baseURL    string
	sessionID  string
}

// NewClient creates a vCenter API client. It configures TLS from the CA
// bundle path but performs no network calls; call Login to open a session.
func NewClient(cfg *config.Config, log *zap.Logger) (*Client, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.VCenter.Insecure, //nolint:gosec // G402: --insecure is an explicit user choice
	}

	if !cfg.VCenter.Insecure {
		pem, err := os.ReadFile(cfg.VCenter.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA bundle %s: %w", cfg.VCenter.CACert, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA bundle %s", cfg.VCenter.CACert)
		}
		tlsConfig.RootCAs = pool
	}

	return &Client{
		cfg: cfg,
		log: log,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.VCenter.Timeout) * time.Second,
			Transport: otelhttp.NewTransport(&http.Transport{
				TLSClientConfig: tlsConfig,
			}),
		},
		baseURL: cfg.BaseURL(),
	}, nil
}

// Login opens an API session via POST /api/session with basic credentials.
func (c *Client) Login(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/session", nil)
	if err != nil {
		return fmt.Errorf("failed to create session request: %w", err)
	}
	req.SetBasicAuth(c.cfg.VCenter.User, c.cfg.VCenter.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read session response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("API auth request failed: HTTP status %d: %s", resp.StatusCode, string(body))
	}

	// The session endpoint returns the token as a bare JSON string.
	var token string
	if err := json.Unmarshal(body, &token); err != nil {
		return fmt.Errorf("failed to decode session token: %w", err)
	}

	c.sessionID = token
	c.log.Debug("Opened vCenter API session")
	return nil
}

// Logout invalidates the session via DELETE /api/session. It is safe to
// call on a client that never logged in.
func (c *Client) Logout(ctx context.Context) error {
	if c.sessionID == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/session", nil)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	req.Header.Set(sessionHeader, c.sessionID)
	c.sessionID = ""

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		c.log.Debug("Closed vCenter API session")
		return nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("token invalidation failed: HTTP status %d: %s", resp.StatusCode, string(body))
	}
}

// get issues an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(sessionHeader, c.sessionID)

	c.log.Debug("Querying vCenter API", zap.String("endpoint", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("GET %s: %w", endpoint, ErrNotFound)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr APIError
		if json.Unmarshal(body, &apiErr) == nil && (apiErr.ErrorType != "" || len(apiErr.Messages) > 0) {
			return fmt.Errorf("API request to %s failed: HTTP status %d: %w", endpoint, resp.StatusCode, &apiErr)
		}
		return fmt.Errorf("API request to %s failed: HTTP status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", endpoint, err)
	}
	return nil
}

// ListVMs returns all VMs known to this vCenter.
func (c *Client) ListVMs(ctx context.Context) ([]VMSummary, error) {
	var vms []VMSummary
	if err := c.get(ctx, "/api/vcenter/vm", &vms); err != nil {
		return nil, err
	}
	return vms, nil
}

// GetVM returns the detail record of a single VM.
func (c *Client) GetVM(ctx context.Context, id string) (*VMInfo, error) {
	var vm VMInfo
	if err := c.get(ctx, "/api/vcenter/vm/"+url.PathEscape(id), &vm); err != nil {
		return nil, err
	}
	return &vm, nil
}

// GetVMTools returns the VMware Tools state of a VM. Platforms that do not
// surface the tools endpoint yield ErrNotFound.
func (c *Client) GetVMTools(ctx context.Context, id string) (*ToolsInfo, error) {
	var tools ToolsInfo
	if err := c.get(ctx, "/api/vcenter/vm/"+url.PathEscape(id)+"/tools", &tools); err != nil {
		return nil, err
	}
	return &tools, nil
}

// ListHosts returns all ESXi hosts with their connection and power states.
func (c *Client) ListHosts(ctx context.Context) ([]HostSummary, error) {
	var hosts []HostSummary
	if err := c.get(ctx, "/api/vcenter/host", &hosts); err != nil {
		return nil, err
	}
	return hosts, nil
}

// ListDatastores returns all datastores with capacity figures.
func (c *Client) ListDatastores(ctx context.Context) ([]DatastoreSummary, error) {
	var stores []DatastoreSummary
	if err := c.get(ctx, "/api/vcenter/datastore", &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// GetDatastore returns the detail record of a single datastore.
func (c *Client) GetDatastore(ctx context.Context, id string) (*DatastoreInfo, error) {
	var ds DatastoreInfo
	if err := c.get(ctx, "/api/vcenter/datastore/"+url.PathEscape(id), &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}
