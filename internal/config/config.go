package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/ini.v1"
)

// DefaultCACert is the system CA bundle used unless --cacert is given.
const DefaultCACert = "/etc/ssl/certs/ca-bundle.crt"

// Modes lists the valid values for --mode.
var Modes = []string{"vms", "hosts", "datastores"}

// Config holds all settings for one plugin invocation. It is built once
// from defaults, optional config/auth files, environment and CLI flags,
// and never mutated afterwards.
type Config struct {
	Mode      string          `koanf:"mode"`
	VCenter   VCenterConfig   `koanf:"vcenter"`
	Disk      DiskConfig      `koanf:"disk"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Debug     bool            `koanf:"debug"`
}

// VCenterConfig holds vCenter connection settings.
type VCenterConfig struct {
	URL      string `koanf:"url"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Timeout  int    `koanf:"timeout"`
	CACert   string `koanf:"cacert"`
	Insecure bool   `koanf:"insecure"`
}

// DiskConfig holds datastore usage thresholds in percent.
type DiskConfig struct {
	WarnPct float64 `koanf:"warn_pct"`
	CritPct float64 `koanf:"crit_pct"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		VCenter: VCenterConfig{
			Timeout: 10,
			CACert:  DefaultCACert,
		},
		Disk: DiskConfig{
			WarnPct: 80,
			CritPct: 90,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Flags carries the raw CLI flag values. Only flags the user actually set
// override file and environment values; Changed reports that per flag name.
type Flags struct {
	Mode     string
	User     string
	Password string
	URL      string
	Timeout  int
	CACert   string
	Insecure bool
	Debug    bool
	DiskWarn float64
	DiskCrit float64

	ConfigFile string
	AuthFile   string

	Changed func(name string) bool
}

// flagKeys maps CLI flag names to koanf key paths.
var flagKeys = map[string]string{
	"mode":     "mode",
	"user":     "vcenter.user",
	"pass":     "vcenter.password",
	"url":      "vcenter.url",
	"timeout":  "vcenter.timeout",
	"cacert":   "vcenter.cacert",
	"insecure": "vcenter.insecure",
	"debug":    "debug",
	"diskwarn": "disk.warn_pct",
	"diskcrit": "disk.crit_pct",
}

// Load builds the effective configuration. Precedence, lowest to highest:
// defaults, YAML config file, INI authfile, CHECK_VCENTER_* environment
// variables, explicitly set CLI flags.
func Load(flags Flags) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if flags.ConfigFile != "" {
		if err := k.Load(file.Provider(flags.ConfigFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if flags.AuthFile != "" {
		if err := loadAuthFile(k, flags.AuthFile); err != nil {
			return nil, err
		}
	}

	if err := loadEnvOverrides(k); err != nil {
		return nil, err
	}

	if err := loadFlagOverrides(k, flags); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := DefaultConfig()
	return k.Load(confmap.Provider(map[string]interface{}{
		"vcenter.timeout":   defaults.VCenter.Timeout,
		"vcenter.cacert":    defaults.VCenter.CACert,
		"disk.warn_pct":     defaults.Disk.WarnPct,
		"disk.crit_pct":     defaults.Disk.CritPct,
		"telemetry.enabled": defaults.Telemetry.Enabled,
	}, "."), nil)
}

// loadAuthFile reads an INI credentials file so username and password can
// stay out of the process list. Recognized keys: user, password (an optional
// [vcenter] section is accepted, matching other check plugin authfiles).
func loadAuthFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("authfile not found: %s", path)
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to parse authfile: %w", err)
	}

	m := make(map[string]interface{})
	for _, section := range iniFile.Sections() {
		for _, key := range section.Keys() {
			switch strings.ToLower(key.Name()) {
			case "user", "username":
				m["vcenter.user"] = key.Value()
			case "password", "pass":
				m["vcenter.password"] = key.Value()
			default:
				fmt.Fprintf(os.Stderr, "WARNING: unrecognized authfile key %s (skipped)\n", key.Name())
			}
		}
	}

	return k.Load(confmap.Provider(m, "."), nil)
}

func loadEnvOverrides(k *koanf.Koanf) error {
	// CHECK_VCENTER_VCENTER_PASSWORD → vcenter.password
	return k.Load(env.Provider("CHECK_VCENTER_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "CHECK_VCENTER_")
		s = strings.ToLower(s)
		if idx := strings.Index(s, "_"); idx >= 0 {
			return s[:idx] + "." + s[idx+1:]
		}
		return s
	}), nil)
}

// loadFlagOverrides applies CLI flags on top of everything else. A flag only
// overrides file and environment values when the user actually set it, so an
// authfile password is not clobbered by the empty --pass default.
func loadFlagOverrides(k *koanf.Koanf, flags Flags) error {
	values := map[string]interface{}{
		"mode":     flags.Mode,
		"user":     flags.User,
		"pass":     flags.Password,
		"url":      flags.URL,
		"timeout":  flags.Timeout,
		"cacert":   flags.CACert,
		"insecure": flags.Insecure,
		"debug":    flags.Debug,
		"diskwarn": flags.DiskWarn,
		"diskcrit": flags.DiskCrit,
	}

	m := make(map[string]interface{})
	for name, value := range values {
		if flags.Changed == nil || flags.Changed(name) {
			m[flagKeys[name]] = value
		}
	}

	return k.Load(confmap.Provider(m, "."), nil)
}

// Validate checks that all required settings are present and in range.
func (c *Config) Validate() error {
	var errs []error

	valid := false
	for _, m := range Modes {
		if c.Mode == m {
			valid = true
			break
		}
	}
	if !valid {
		errs = append(errs, fmt.Errorf("mode must be one of %s, got %q", strings.Join(Modes, "|"), c.Mode))
	}

	if c.VCenter.URL == "" {
		errs = append(errs, fmt.Errorf("url is required"))
	} else {
		u, err := url.Parse(c.VCenter.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("url must be a valid URL with scheme and host, got %q", c.VCenter.URL))
		}
	}
	if c.VCenter.User == "" {
		errs = append(errs, fmt.Errorf("user is required"))
	}
	if c.VCenter.Password == "" {
		errs = append(errs, fmt.Errorf("password is required"))
	}
	if c.VCenter.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be greater than 0, got %d", c.VCenter.Timeout))
	}

	if c.Disk.WarnPct < 0 || c.Disk.WarnPct > 100 {
		errs = append(errs, fmt.Errorf("diskwarn must be between 0 and 100, got %g", c.Disk.WarnPct))
	}
	if c.Disk.CritPct < 0 || c.Disk.CritPct > 100 {
		errs = append(errs, fmt.Errorf("diskcrit must be between 0 and 100, got %g", c.Disk.CritPct))
	}
	if c.Disk.WarnPct > c.Disk.CritPct {
		errs = append(errs, fmt.Errorf("diskwarn (%g) must not exceed diskcrit (%g)", c.Disk.WarnPct, c.Disk.CritPct))
	}

	return errors.Join(errs...)
}

// BaseURL returns the vCenter base URL without a trailing slash.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.VCenter.URL, "/")
}
