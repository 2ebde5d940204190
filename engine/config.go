package engine

import (
	"fmt"
	"net"
	"net/url"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Config is the engine's runtime input, validated once by
// ParseConfig before Start accepts it.
type Config struct {
	FlowTargetURL         string `json:"flow_target_url" validate:"required,url_format"`
	SimUsers              int    `json:"sim_users" validate:"required,min=1"`
	FlowTargetDNSOverride string `json:"flow_target_dns_override,omitempty" validate:"omitempty,ip"`
	XFFHeaderName         string `json:"xff_header_name" default:"X-Forwarded-For"`
	MinSleepMS            int    `json:"min_sleep_ms" validate:"min=0"`
	MaxSleepMS            int    `json:"max_sleep_ms" validate:"min=0"`
	FlowCycleDelayMS      int    `json:"flow_cycle_delay_ms,omitempty" validate:"min=0"`
	OverrideStepURLHost   bool   `json:"override_step_url_host" default:"true"`
	Debug                 bool   `json:"debug,omitempty"`

	targetURL *url.URL
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	configValidate.RegisterValidation("url_format", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		return err == nil && u.Scheme != "" && u.Host != ""
	})
}

// ParseConfig applies defaults, merges raw (already-JSON/YAML-decoded) field
// values on top, then validates: defaults are applied to a zero-value struct
// *before* raw values are merged, so an explicit `false`/`0` in raw always
// wins over a struct-tag default (creasty/defaults can't otherwise tell
// "unset" from "set to the zero value").
func ParseConfig(raw map[string]any) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, &ValidationError{Message: "failed to apply config defaults", Cause: err}
	}

	if len(raw) > 0 {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           cfg,
			TagName:          "json",
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, &ValidationError{Message: "failed to build config decoder", Cause: err}
		}
		if err := decoder.Decode(raw); err != nil {
			return nil, &ValidationError{Message: "failed to decode config", Cause: err}
		}
	}

	if err := configValidate.Struct(cfg); err != nil {
		return nil, &ValidationError{Message: "config validation failed", Cause: err}
	}
	if cfg.MinSleepMS > cfg.MaxSleepMS {
		return nil, &ValidationError{Message: fmt.Sprintf("min_sleep_ms (%d) must be <= max_sleep_ms (%d)", cfg.MinSleepMS, cfg.MaxSleepMS)}
	}

	target, err := url.Parse(cfg.FlowTargetURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, &ValidationError{Message: fmt.Sprintf("flow_target_url %q must be an absolute URL with scheme and host", cfg.FlowTargetURL)}
	}
	cfg.targetURL = target

	if cfg.FlowTargetDNSOverride != "" {
		if net.ParseIP(cfg.FlowTargetDNSOverride) == nil {
			return nil, &ValidationError{Message: fmt.Sprintf("flow_target_dns_override %q is not an IP literal", cfg.FlowTargetDNSOverride)}
		}
	}

	return cfg, nil
}

// TargetURL returns the parsed flow_target_url, valid only after ParseConfig
// has succeeded.
func (c *Config) TargetURL() *url.URL { return c.targetURL }

func defaultPortForScheme(scheme string) string {
	switch scheme {
	case "https":
		return "443"
	case "http":
		return "80"
	default:
		return ""
	}
}
