package engine

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
)

// dialOverrideKey is the context key carrying a per-request dial-override IP
// from the URL Builder to the Request Executor's transport. A context value
// (rather than a field fixed on the transport) is required because the
// override is a per-request decision in Case B, not a per-client constant.
type dialOverrideKey struct{}

// BuiltURL is the URL Builder's output: the literal request URL,
// the address the transport should dial, and an optional explicit Host
// header distinct from the dial address.
type BuiltURL struct {
	RequestURL string
	DialHost   string // host[:port] to connect to; empty means "dial RequestURL's own host"
	HostHeader string // explicit Host header; empty means "let the transport derive it"
}

// WithDialOverride attaches host's dial address to ctx for the transport
// constructed by NewExecutor to consult.
func WithDialOverride(ctx context.Context, dialHost string) context.Context {
	if dialHost == "" {
		return ctx
	}
	return context.WithValue(ctx, dialOverrideKey{}, dialHost)
}

func dialOverrideFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(dialOverrideKey{}).(string)
	return v, ok
}

// BuildURL composes the request URL and dial target. base is the parsed
// flow_target_url; dnsOverride is flow_target_dns_override (empty when
// unset); stepURLSubstituted is the step's url field after variable
// substitution; overrideHost is override_step_url_host.
func BuildURL(base *url.URL, dnsOverride string, stepURLSubstituted string, overrideHost bool, logger *slog.Logger) (BuiltURL, error) {
	parsedStep, err := url.Parse(stepURLSubstituted)
	if err != nil {
		parsedStep = &url.URL{Path: stepURLSubstituted}
	}

	if overrideHost {
		return buildCaseA(base, dnsOverride, parsedStep, logger), nil
	}
	return buildCaseB(base, dnsOverride, parsedStep, logger), nil
}

// buildCaseA: scheme/authority from base; path/query/fragment from the step.
func buildCaseA(base *url.URL, dnsOverride string, parsedStep *url.URL, logger *slog.Logger) BuiltURL {
	out := *base
	out.Path = normalizePath(parsedStep.Path)
	out.RawQuery = parsedStep.RawQuery
	// Fragments are never forwarded onto the wire (they are a client-side-only
	// construct for real browsers and net/http never transmits them either).
	out.Fragment = ""

	result := BuiltURL{RequestURL: out.String()}

	if dnsOverride != "" {
		result.DialHost = hostWithPort(dnsOverride, base.Scheme, base.Port())
		result.HostHeader = authorityHeader(base)
		logger.Debug("url builder: case A, dns override", "request_url", result.RequestURL, "dial_host", result.DialHost, "host_header", result.HostHeader)
	} else {
		logger.Debug("url builder: case A, no dns override", "request_url", result.RequestURL)
	}
	return result
}

// buildCaseB: the step URL is used as-is when absolute; relative step URLs
// fall back to Case A's composition and override semantics.
func buildCaseB(base *url.URL, dnsOverride string, parsedStep *url.URL, logger *slog.Logger) BuiltURL {
	if parsedStep.IsAbs() {
		out := *parsedStep
		out.Fragment = ""
		result := BuiltURL{RequestURL: out.String()}

		if dnsOverride != "" && parsedStep.Hostname() == base.Hostname() {
			result.DialHost = hostWithPort(dnsOverride, parsedStep.Scheme, parsedStep.Port())
			result.HostHeader = authorityHeader(base)
			logger.Debug("url builder: case B, absolute step url, dns override", "request_url", result.RequestURL, "dial_host", result.DialHost)
		} else {
			logger.Debug("url builder: case B, absolute step url, no dns override", "request_url", result.RequestURL)
		}
		return result
	}

	logger.Debug("url builder: case B, relative step url, falling back to case A composition")
	return buildCaseA(base, dnsOverride, parsedStep, logger)
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

// hostWithPort pairs an override IP with the port the logical host would
// have used (explicit port, else the scheme's default), so the dial target
// is a complete "ip:port" the transport can pass straight to net.Dial.
func hostWithPort(ip, scheme, explicitPort string) string {
	port := explicitPort
	if port == "" {
		port = defaultPortForScheme(scheme)
	}
	if port == "" {
		return ip
	}
	return ip + ":" + port
}

// authorityHeader renders base's host[:port] the way an explicit Host header
// should read — non-default ports included, default ports omitted, matching
// ordinary net/http behavior for an unoverridden request.
func authorityHeader(base *url.URL) string {
	port := base.Port()
	if port == "" || port == defaultPortForScheme(base.Scheme) {
		return base.Hostname()
	}
	return base.Host
}
