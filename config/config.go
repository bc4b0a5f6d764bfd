package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"

	"plcdb/journal"
	"plcdb/transport"
)

const (
	// AppDirectoryName is the per-user application data directory name.
	AppDirectoryName = "plcdb"
	// configName is the configuration file searched for when no explicit
	// path is given.
	configName = "config"
)

// PLC carries per-controller connection settings. Zero values fall back to
// transport defaults.
type PLC struct {
	Protocol  string
	Port      int
	Directory string
}

// Config contains the tool-wide settings.
type Config struct {
	// ExportDir holds timestamped database exports.
	ExportDir string
	// JournalPath is the operation journal database file. Empty disables
	// journaling.
	JournalPath string
	// ScanTimeout bounds mDNS discovery scans. Zero means the discovery
	// default.
	ScanTimeout time.Duration
	// Credentials are tried in order on every controller.
	Credentials []transport.Credential
	// PLCs maps controller hostname to its connection settings.
	PLCs map[string]PLC
}

// Transport returns connection options for one controller hostname.
func (c *Config) Transport(host string) transport.Options {
	plc := c.PLCs[host]
	return transport.Options{
		Protocol:    plc.Protocol,
		Port:        plc.Port,
		Directory:   plc.Directory,
		Credentials: c.Credentials,
	}
}

// ResolveDataDir returns the OS-aware app data directory.
//
// If PLCDB_DATA_DIR is set, its value is used as an explicit override.
func ResolveDataDir() (string, error) {
	if override := os.Getenv("PLCDB_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(base, AppDirectoryName), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", AppDirectoryName), nil
	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, AppDirectoryName), nil
	}
}

// Load reads configuration from path. An empty path searches config.yaml in
// the working directory and the app data directory; a missing file then
// yields pure defaults. An explicit path must exist.
func Load(path string) (*Config, error) {
	dataDir, err := ResolveDataDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath(dataDir)
	}

	v.SetDefault("export_dir", filepath.Join(dataDir, "exports"))
	v.SetDefault("journal_path", filepath.Join(dataDir, journal.DefaultDBFileName))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		ExportDir:   v.GetString("export_dir"),
		JournalPath: v.GetString("journal_path"),
		ScanTimeout: v.GetDuration("scan_timeout"),
		Credentials: []transport.Credential{transport.DefaultCredential},
		PLCs:        make(map[string]PLC),
	}

	if raw := v.Get("credentials"); raw != nil {
		creds, err := parseCredentials(raw)
		if err != nil {
			return nil, err
		}
		if len(creds) > 0 {
			cfg.Credentials = creds
		}
	}

	for name, raw := range v.GetStringMap("plcs") {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("plc %q: expected a mapping", name)
		}
		plc := PLC{
			Protocol:  stringValue(entry["protocol"]),
			Port:      intValue(entry["port"]),
			Directory: stringValue(entry["directory"]),
		}
		if err := validateProtocol(plc.Protocol); err != nil {
			return nil, fmt.Errorf("plc %q: %w", name, err)
		}
		cfg.PLCs[name] = plc
	}

	return cfg, nil
}

func parseCredentials(raw any) ([]transport.Credential, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, errors.New("credentials: expected a list")
	}
	creds := make([]transport.Credential, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("credential %d: expected a mapping", i)
		}
		cred := transport.Credential{
			Username: stringValue(entry["username"]),
			Password: stringValue(entry["password"]),
		}
		if cred.Username == "" {
			return nil, fmt.Errorf("credential %d: username is required", i)
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

func validateProtocol(protocol string) error {
	switch protocol {
	case "", transport.ProtocolFTP, transport.ProtocolSSH:
		return nil
	default:
		return fmt.Errorf("invalid protocol %q", protocol)
	}
}

// stringValue converts untyped YAML scalars to strings. Unquoted numeric
// passwords are common in controller configs.
func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func intValue(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return 0
}
