package agent2

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.zabbix.com/sdk/plugin"

	"github.com/m-erhardt/check-vcenter/internal/check"
	"github.com/m-erhardt/check-vcenter/internal/config"
	"github.com/m-erhardt/check-vcenter/internal/vcenter"
)

// DefaultPollInterval is the default seconds between background polls.
const DefaultPollInterval = 300

// VCenterPlugin implements Configurator, Runner and Exporter for Zabbix
// Agent 2. It polls the vCenter API in the background and serves the latest
// per-mode results from a cache.
type VCenterPlugin struct {
	plugin.Base

	cfg          *config.Config
	pollInterval int
	cache        *ResultCache

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPlugin creates a new VCenterPlugin instance.
func NewPlugin() *VCenterPlugin {
	return &VCenterPlugin{
		cache:        NewResultCache(),
		pollInterval: DefaultPollInterval,
	}
}

// --- Configurator ---

// Configure is called by Agent 2 to pass config options.
func (p *VCenterPlugin) Configure(globalOptions *plugin.GlobalOptions, privateOptions any) {
	// privateOptions is a map[string]string from the agent2 config file
	// (Plugins.VCenter.* keys).
	opts, ok := privateOptions.(map[string]string)
	if !ok {
		p.Errf("unexpected privateOptions type: %T", privateOptions)
		return
	}

	cfg := config.DefaultConfig()

	if v, ok := opts["Url"]; ok {
		cfg.VCenter.URL = v
	}
	if v, ok := opts["User"]; ok {
		cfg.VCenter.User = v
	}
	if v, ok := opts["Password"]; ok {
		cfg.VCenter.Password = v
	}
	if v, ok := opts["CACert"]; ok {
		cfg.VCenter.CACert = v
	}
	if v, ok := opts["Insecure"]; ok {
		cfg.VCenter.Insecure = v == "true" || v == "1"
	}
	if v, ok := opts["Timeout"]; ok {
		if t, err := strconv.Atoi(v); err == nil {
			cfg.VCenter.Timeout = t
		}
	}
	if v, ok := opts["DiskWarnPct"]; ok {
		if pct, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Disk.WarnPct = pct
		}
	}
	if v, ok := opts["DiskCritPct"]; ok {
		if pct, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Disk.CritPct = pct
		}
	}
	if v, ok := opts["PollInterval"]; ok {
		if pi, err := strconv.Atoi(v); err == nil {
			p.pollInterval = pi
		}
	}

	p.cfg = cfg
}

// Validate checks mandatory configuration.
func (p *VCenterPlugin) Validate(privateOptions any) error {
	opts, ok := privateOptions.(map[string]string)
	if !ok {
		return fmt.Errorf("unexpected privateOptions type: %T", privateOptions)
	}
	if opts["Url"] == "" {
		return fmt.Errorf("Plugins.VCenter.Url is required")
	}
	if opts["User"] == "" {
		return fmt.Errorf("Plugins.VCenter.User is required")
	}
	if opts["Password"] == "" {
		return fmt.Errorf("Plugins.VCenter.Password is required")
	}
	return nil
}

// --- Runner ---

// Start is called when Agent 2 starts the plugin.
func (p *VCenterPlugin) Start() {
	p.Infof("starting VCenter plugin (poll interval: %ds)", p.pollInterval)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.pollLoop(ctx)
}

// Stop is called when Agent 2 shuts down.
func (p *VCenterPlugin) Stop() {
	p.Infof("stopping VCenter plugin")
	p.cancel()
	p.wg.Wait()
}

func (p *VCenterPlugin) pollLoop(ctx context.Context) {
	defer p.wg.Done()

	// Run immediately on start, then periodically.
	p.runChecks(ctx)

	interval := p.pollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.runChecks(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// runChecks performs one sequential check per mode. Each mode is a full
// login, fetch, logout cycle, the same as one CLI invocation.
func (p *VCenterPlugin) runChecks(ctx context.Context) {
	if p.cfg == nil {
		p.Errf("plugin not configured, skipping poll")
		return
	}

	for _, mode := range config.Modes {
		cfg := *p.cfg
		cfg.Mode = mode

		// Check internals log through p.Base (SDK logger), so the
		// runner gets a nop zap logger.
		client, err := vcenter.NewClient(&cfg, zap.NewNop())
		if err != nil {
			p.Errf("failed to create vCenter client: %s", err)
			return
		}

		result := check.NewRunner(&cfg, zap.NewNop(), client).Run(ctx)
		p.cache.Update(mode, result)

		p.Debugf("poll completed: mode=%s severity=%s", mode, result.Severity)
	}
}

// --- Exporter ---

// exportedResult is the JSON document served for the per-mode item keys.
type exportedResult struct {
	Severity string   `json:"severity"`
	ExitCode int      `json:"exit_code"`
	Message  string   `json:"message"`
	Details  []string `json:"details,omitempty"`
}

// Export handles item key requests from Agent 2.
func (p *VCenterPlugin) Export(key string, params []string, ctx plugin.ContextProvider) (any, error) {
	switch key {
	case "vcenter.vms":
		return p.exportMode("vms")

	case "vcenter.hosts":
		return p.exportMode("hosts")

	case "vcenter.datastores":
		return p.exportMode("datastores")

	case "vcenter.severity":
		if len(params) < 1 {
			return nil, fmt.Errorf("vcenter.severity requires a mode parameter")
		}
		result, ok := p.cache.Result(params[0])
		if !ok {
			return nil, fmt.Errorf("no poll data available yet for mode %s", params[0])
		}
		return result.Severity.ExitCode(), nil

	case "vcenter.age":
		if len(params) < 1 {
			return nil, fmt.Errorf("vcenter.age requires a mode parameter")
		}
		updated, ok := p.cache.UpdatedAt(params[0])
		if !ok {
			return nil, fmt.Errorf("no poll data available yet for mode %s", params[0])
		}
		return int(time.Since(updated).Seconds()), nil

	default:
		return nil, fmt.Errorf("unknown key: %s", key)
	}
}

func (p *VCenterPlugin) exportMode(mode string) (string, error) {
	result, ok := p.cache.Result(mode)
	if !ok {
		return "", fmt.Errorf("no poll data available yet for mode %s", mode)
	}

	b, err := json.Marshal(exportedResult{
		Severity: result.Severity.String(),
		ExitCode: result.Severity.ExitCode(),
		Message:  result.Message,
		Details:  result.Details,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(b), nil
}
