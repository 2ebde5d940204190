package engine

import (
	"net/url"
	"testing"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q) error: %v", raw, err)
	}
	return u
}

func TestBuildURLCaseANoOverride(t *testing.T) {
	base := mustParseURL(t, "https://api.example.com")
	built, err := BuildURL(base, "", "/users/1?x=1", true, testLogger())
	if err != nil {
		t.Fatalf("BuildURL error: %v", err)
	}
	if built.RequestURL != "https://api.example.com/users/1?x=1" {
		t.Errorf("RequestURL = %q", built.RequestURL)
	}
	if built.DialHost != "" || built.HostHeader != "" {
		t.Errorf("expected no dial override without dns override, got DialHost=%q HostHeader=%q", built.DialHost, built.HostHeader)
	}
}

func TestBuildURLCaseAWithDNSOverride(t *testing.T) {
	base := mustParseURL(t, "https://api.example.com")
	built, err := BuildURL(base, "203.0.113.9", "/users/1", true, testLogger())
	if err != nil {
		t.Fatalf("BuildURL error: %v", err)
	}
	if built.RequestURL != "https://api.example.com/users/1" {
		t.Errorf("RequestURL = %q, want scheme/host from base with step's path", built.RequestURL)
	}
	if built.DialHost != "203.0.113.9:443" {
		t.Errorf("DialHost = %q, want 203.0.113.9:443", built.DialHost)
	}
	if built.HostHeader != "api.example.com" {
		t.Errorf("HostHeader = %q, want api.example.com", built.HostHeader)
	}
}

func TestBuildURLCaseAStepURLIgnoredForAuthority(t *testing.T) {
	base := mustParseURL(t, "https://api.example.com")
	built, err := BuildURL(base, "", "https://evil.example.com/steal", true, testLogger())
	if err != nil {
		t.Fatalf("BuildURL error: %v", err)
	}
	if built.RequestURL != "https://api.example.com/steal" {
		t.Errorf("RequestURL = %q, want base's scheme+host with step's path only (Case A ignores step authority)", built.RequestURL)
	}
}

func TestBuildURLCaseBAbsoluteStepURLUsedAsIs(t *testing.T) {
	base := mustParseURL(t, "https://api.example.com")
	built, err := BuildURL(base, "", "https://cdn.example.com/asset.js", false, testLogger())
	if err != nil {
		t.Fatalf("BuildURL error: %v", err)
	}
	if built.RequestURL != "https://cdn.example.com/asset.js" {
		t.Errorf("RequestURL = %q, want the absolute step URL verbatim", built.RequestURL)
	}
	if built.DialHost != "" {
		t.Errorf("DialHost = %q, want empty — dns override never applies to a different host", built.DialHost)
	}
}

func TestBuildURLCaseBDNSOverrideOnlyAppliesToSameHost(t *testing.T) {
	base := mustParseURL(t, "https://api.example.com")

	sameHost, err := BuildURL(base, "203.0.113.9", "https://api.example.com/path", false, testLogger())
	if err != nil {
		t.Fatalf("BuildURL error: %v", err)
	}
	if sameHost.DialHost != "203.0.113.9:443" {
		t.Errorf("DialHost = %q, want override applied for same-host absolute step url", sameHost.DialHost)
	}

	otherHost, err := BuildURL(base, "203.0.113.9", "https://other.example.com/path", false, testLogger())
	if err != nil {
		t.Fatalf("BuildURL error: %v", err)
	}
	if otherHost.DialHost != "" {
		t.Errorf("DialHost = %q, want empty for a different host", otherHost.DialHost)
	}
}

func TestBuildURLCaseBRelativeStepURLFallsBackToCaseA(t *testing.T) {
	base := mustParseURL(t, "https://api.example.com")
	built, err := BuildURL(base, "", "/relative/path", false, testLogger())
	if err != nil {
		t.Fatalf("BuildURL error: %v", err)
	}
	if built.RequestURL != "https://api.example.com/relative/path" {
		t.Errorf("RequestURL = %q, want base composed with the relative path", built.RequestURL)
	}
}

func TestBuildURLFragmentDropped(t *testing.T) {
	base := mustParseURL(t, "https://api.example.com")
	built, err := BuildURL(base, "", "/page#section", true, testLogger())
	if err != nil {
		t.Fatalf("BuildURL error: %v", err)
	}
	if built.RequestURL != "https://api.example.com/page" {
		t.Errorf("RequestURL = %q, want fragment dropped", built.RequestURL)
	}
}

func TestBuildURLNonDefaultPortKeptInHostHeader(t *testing.T) {
	base := mustParseURL(t, "https://api.example.com:8443")
	built, err := BuildURL(base, "203.0.113.9", "/x", true, testLogger())
	if err != nil {
		t.Fatalf("BuildURL error: %v", err)
	}
	if built.HostHeader != "api.example.com:8443" {
		t.Errorf("HostHeader = %q, want the non-default port preserved", built.HostHeader)
	}
	if built.DialHost != "203.0.113.9:8443" {
		t.Errorf("DialHost = %q, want the explicit port carried over", built.DialHost)
	}
}
