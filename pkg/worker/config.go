package worker

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"

	"github.com/Sternrassler/offline-cache/pkg/manifest"
	"gopkg.in/yaml.v3"
)

// Strategy names a request handling strategy.
type Strategy string

const (
	// StrategyCacheOnly serves from cache, using the network only when an
	// entry is unexpectedly missing.
	StrategyCacheOnly Strategy = "cache-only"

	// StrategyCacheFirst serves from cache, otherwise fetches and stores.
	StrategyCacheFirst Strategy = "cache-first"
)

// Strategies selects the strategy per asset class.
type Strategies struct {
	Shell   Strategy `yaml:"shell"`
	Dynamic Strategy `yaml:"dynamic"`
}

// Config holds the worker configuration.
type Config struct {
	// ShellCache is the versioned name of the shell store
	ShellCache string `yaml:"shell_cache"`

	// DynamicCache is the versioned name of the dynamic store
	DynamicCache string `yaml:"dynamic_cache"`

	// Origin is the application origin shell paths are resolved against
	Origin string `yaml:"origin"`

	// Fallback is the shell path served to HTML requests when everything
	// else fails. Empty disables the fallback.
	Fallback string `yaml:"fallback"`

	// Strategies per asset class
	Strategies Strategies `yaml:"strategies"`

	// Manifest lists shell and dynamic assets
	Manifest manifest.Manifest `yaml:",inline"`
}

// DefaultConfig returns the configuration of the calendar application.
func DefaultConfig() Config {
	return Config{
		ShellCache:   "app-shell-v1",
		DynamicCache: "dynamic-cache-v1",
		Origin:       "http://localhost:8000",
		Fallback:     "/offline.html",
		Strategies: Strategies{
			Shell:   StrategyCacheOnly,
			Dynamic: StrategyCacheFirst,
		},
		Manifest: manifest.Default(),
	}
}

// LoadConfig reads a YAML configuration on top of DefaultConfig.
// Lists given in the document replace the default lists.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error

	if c.ShellCache == "" {
		errs = append(errs, errors.New("shell_cache is required"))
	}
	if c.DynamicCache == "" {
		errs = append(errs, errors.New("dynamic_cache is required"))
	}
	if c.ShellCache != "" && c.ShellCache == c.DynamicCache {
		errs = append(errs, fmt.Errorf("shell_cache and dynamic_cache must differ (both %q)", c.ShellCache))
	}

	if c.Origin == "" {
		if len(c.Manifest.Shell) > 0 {
			errs = append(errs, errors.New("origin is required to precache shell assets"))
		}
	} else if u, err := url.Parse(c.Origin); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("origin %q must be an absolute URL", c.Origin))
	}

	if c.Fallback != "" && !slices.Contains(c.Manifest.Shell, c.Fallback) {
		errs = append(errs, fmt.Errorf("fallback %q is not a shell asset", c.Fallback))
	}

	for class, s := range map[string]Strategy{"shell": c.Strategies.Shell, "dynamic": c.Strategies.Dynamic} {
		if s != StrategyCacheOnly && s != StrategyCacheFirst {
			errs = append(errs, fmt.Errorf("strategies.%s: unknown strategy %q", class, s))
		}
	}

	if err := c.Manifest.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (c Config) originURL() (*url.URL, error) {
	if c.Origin == "" {
		return nil, nil
	}
	return url.Parse(c.Origin)
}
