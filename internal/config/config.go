package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	KeyURL        = "INVENTORY_URL"
	KeyTimeoutMS  = "INVENTORY_TIMEOUT_MS"
	KeyMinChars   = "INVENTORY_MIN_CHARS"
	KeyDebounceMS = "INVENTORY_DEBOUNCE_MS"
	KeyFields     = "INVENTORY_FIELDS"
)

const rcName = ".inventoryrc"

// Config holds the settings read from the rc file and the environment.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MinChars   int
	Debounce   time.Duration
	FieldsPath string // layout file; empty means the built-in layout
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Config {
	return Config{Timeout: 5 * time.Second, MinChars: 1}
}

// DefaultPath returns ~/.inventoryrc, or ./.inventoryrc without a home dir.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return rcName
	}
	return filepath.Join(home, rcName)
}

// Load reads KEY=VALUE lines from path, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	values := map[string]string{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read %s: %w", path, err)
	default:
		values, err = parseRC(string(data))
		if err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	for _, k := range []string{KeyURL, KeyTimeoutMS, KeyMinChars, KeyDebounceMS, KeyFields} {
		if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
			values[k] = strings.TrimSpace(v)
		}
	}
	if err := cfg.apply(values); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseRC(s string) (map[string]string, error) {
	out := map[string]string{}
	sc := bufio.NewScanner(strings.NewReader(s))
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected KEY=VALUE", n)
		}
		out[strings.TrimSpace(k)] = strings.Trim(strings.TrimSpace(v), `"'`)
	}
	return out, sc.Err()
}

func (c *Config) apply(values map[string]string) error {
	if v, ok := values[KeyURL]; ok {
		c.BaseURL = v
	}
	if v, ok := values[KeyFields]; ok {
		c.FieldsPath = v
	}
	var errs []error
	if v, ok := values[KeyTimeoutMS]; ok {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			errs = append(errs, fmt.Errorf("%s: want a positive integer, got %q", KeyTimeoutMS, v))
		} else {
			c.Timeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v, ok := values[KeyDebounceMS]; ok {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			errs = append(errs, fmt.Errorf("%s: want a non-negative integer, got %q", KeyDebounceMS, v))
		} else {
			c.Debounce = time.Duration(ms) * time.Millisecond
		}
	}
	if v, ok := values[KeyMinChars]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("%s: want an integer >= 1, got %q", KeyMinChars, v))
		} else {
			c.MinChars = n
		}
	}
	return errors.Join(errs...)
}

// Save writes cfg to path, readable only by the owner.
func Save(path string, cfg Config) error {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return errors.New("config: base URL is required")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s\n", KeyURL, cfg.BaseURL)
	if cfg.Timeout > 0 {
		fmt.Fprintf(&b, "%s=%d\n", KeyTimeoutMS, cfg.Timeout.Milliseconds())
	}
	if cfg.MinChars > 0 {
		fmt.Fprintf(&b, "%s=%d\n", KeyMinChars, cfg.MinChars)
	}
	if cfg.Debounce > 0 {
		fmt.Fprintf(&b, "%s=%d\n", KeyDebounceMS, cfg.Debounce.Milliseconds())
	}
	if cfg.FieldsPath != "" {
		fmt.Fprintf(&b, "%s=%s\n", KeyFields, cfg.FieldsPath)
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}
