// Package config loads the generator's YAML configuration: which upstream
// sources feed each pipeline stage, where source trees live on disk, and
// which output targets to emit.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vuong2023/Rules/internal/render"
)

type Config struct {
	Targets []render.Target `yaml:"targets"`

	Paths struct {
		DomainList string `yaml:"domain_list"`
		Custom     string `yaml:"custom"`
		Personal   string `yaml:"personal"`
		Patches    string `yaml:"patches"`
		Dist       string `yaml:"dist"`
	} `yaml:"paths"`

	Reject struct {
		FilterURLs  []string `yaml:"filter_urls"`
		ExcludeURLs []string `yaml:"exclude_urls"`
		DomainList  string   `yaml:"domain_list"`
	} `yaml:"reject"`

	Domestic struct {
		DomainList   string   `yaml:"domain_list"`
		ExcludedTags []string `yaml:"excluded_tags"`
		TLDList      string   `yaml:"tld_list"`
		OverseasTLDs []string `yaml:"overseas_tlds"`
		IPv4URL      string   `yaml:"ipv4_url"`
		DelegatedURL string   `yaml:"delegated_url"`
		DelegatedCC  string   `yaml:"delegated_cc"`
	} `yaml:"domestic"`

	Categories struct {
		Names           []string `yaml:"names"`
		ExcludedImports []string `yaml:"excluded_imports"`
	} `yaml:"categories"`

	// GeoIP is optional; the stage is skipped when no database URL is set.
	GeoIP struct {
		URL       string   `yaml:"url"`
		Countries []string `yaml:"countries"`
	} `yaml:"geoip"`
}

type ConfigError struct {
	Code    string
	Message string
	Path    string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (file: %s)", e.Path)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// Load reads, strictly decodes and validates a config file. Unknown keys are
// rejected so a typo cannot silently disable a source.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{
			Code:    "CONFIG_NOT_FOUND",
			Message: "cannot read config file",
			Path:    path,
			Cause:   err,
		}
	}
	cfg, err := Parse(string(data))
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes and validates config content.
func Parse(content string) (*Config, error) {
	var cfg Config
	if err := decodeStrict(content, &cfg); err != nil {
		return nil, &ConfigError{
			Code:    "CONFIG_PARSE_ERROR",
			Message: "config YAML parse failed",
			Cause:   err,
		}
	}

	if len(cfg.Targets) == 0 {
		cfg.Targets = render.Targets
	}
	for _, t := range cfg.Targets {
		if isUnsupportedTarget(t) {
			return nil, &ConfigError{
				Code:    "CONFIG_VALIDATE_ERROR",
				Message: fmt.Sprintf("unknown target %q", t),
			}
		}
	}

	applyDefault(&cfg.Paths.DomainList, "domain-list-community/data")
	applyDefault(&cfg.Paths.Custom, "source")
	applyDefault(&cfg.Paths.Personal, "source/personal")
	applyDefault(&cfg.Paths.Patches, "source/patches")
	applyDefault(&cfg.Paths.Dist, "dists")
	applyDefault(&cfg.Reject.DomainList, "category-ads-all")
	applyDefault(&cfg.Domestic.DomainList, "geolocation-cn")
	applyDefault(&cfg.Domestic.TLDList, "tld-cn")
	applyDefault(&cfg.Domestic.IPv4URL, "https://raw.githubusercontent.com/misakaio/chnroutes2/master/chnroutes.txt")
	applyDefault(&cfg.Domestic.DelegatedURL, "https://ftp.apnic.net/stats/apnic/delegated-apnic-latest")
	applyDefault(&cfg.Domestic.DelegatedCC, "CN")
	if len(cfg.Domestic.ExcludedTags) == 0 {
		cfg.Domestic.ExcludedTags = []string{"!cn"}
	}
	return &cfg, nil
}

func applyDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

func isUnsupportedTarget(t render.Target) bool {
	for _, known := range render.Targets {
		if t == known {
			return false
		}
	}
	return true
}

func decodeStrict(content string, out any) error {
	dec := yaml.NewDecoder(strings.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return err
	}

	// Reject multi-document YAML to keep behavior deterministic.
	var extra any
	if err := dec.Decode(&extra); err == nil {
		return errors.New("multiple YAML documents are not allowed")
	} else if !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
