package engine

import (
	"fmt"
	"math/rand"
)

// userAgents is a small bundled pool of plausible browser User-Agent
// strings rotated across simulated users.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Android 14; Mobile; rv:125.0) Gecko/125.0 Firefox/125.0",
}

// acceptLanguages rotates alongside the User-Agent to give each simulated
// user a slightly more distinct fingerprint.
var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.8",
	"de-DE,de;q=0.9,en;q=0.7",
	"fr-FR,fr;q=0.9,en;q=0.6",
	"es-ES,es;q=0.9,en;q=0.7",
	"pt-BR,pt;q=0.9,en;q=0.6",
}

// Identity is one simulated user's fixed per-run attributes. SourceIP and
// UserAgent are injected into the context at every iteration; all three
// fields feed the request headers.
type Identity struct {
	SourceIP       string
	UserAgent      string
	AcceptLanguage string
}

// NewIdentity draws a plausible but synthetic identity. rng is provided by
// the caller so worker identities are reproducible in tests.
func NewIdentity(rng *rand.Rand) Identity {
	return Identity{
		SourceIP:       randomIPv4(rng),
		UserAgent:      userAgents[rng.Intn(len(userAgents))],
		AcceptLanguage: acceptLanguages[rng.Intn(len(acceptLanguages))],
	}
}

// randomIPv4 avoids the reserved 0.x, 127.x (loopback), and 255.x ranges so
// generated addresses look like routable traffic in logs and headers.
func randomIPv4(rng *rand.Rand) string {
	first := 1 + rng.Intn(254)
	for first == 127 {
		first = 1 + rng.Intn(254)
	}
	return fmt.Sprintf("%d.%d.%d.%d", first, rng.Intn(256), rng.Intn(256), 1+rng.Intn(254))
}
