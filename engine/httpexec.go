package engine

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const requestTimeout = 15 * time.Second

// Executor performs one HTTP request at a time with bounded retries, and
// records the "requests" counter on completion. One Executor
// belongs to exactly one worker/simulated user; it is never shared.
type Executor struct {
	client  *resty.Client
	metrics *Metrics
}

// NewExecutor builds a resty client whose Transport honors a per-request
// dial-override address (set via WithDialOverride) while preserving the
// logical host as the TLS SNI name — required so a DNS-override connection
// to an IP still presents and validates the right certificate.
func NewExecutor(metrics *Metrics) *Executor {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if override, ok := dialOverrideFromContext(ctx); ok {
				addr = override
			}
			return dialer.DialContext(ctx, network, addr)
		},
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				host = addr
			}
			dialAddr := addr
			if override, ok := dialOverrideFromContext(ctx); ok {
				dialAddr = override
			}
			raw, err := dialer.DialContext(ctx, network, dialAddr)
			if err != nil {
				return nil, err
			}
			tlsConn := tls.Client(raw, &tls.Config{ServerName: host})
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				raw.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: requestTimeout,
	}

	client := resty.New().
		SetTransport(transport).
		SetTimeout(requestTimeout).
		SetRetryCount(3).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	return &Executor{client: client, metrics: metrics}
}

// Close releases the executor's idle connections, called on worker exit.
func (e *Executor) Close() {
	e.client.GetClient().CloseIdleConnections()
}

// MergeHeaders layers headers with later layers winning, matched
// case-insensitively, plus injection of the XFF-style source-IP header.
// http.Header.Set canonicalizes keys, so layering with Set gives exactly
// that override semantics.
func MergeHeaders(sourceIP, xffHeaderName string, layers ...map[string]string) http.Header {
	h := http.Header{}
	for _, layer := range layers {
		for k, v := range layer {
			h.Set(k, v)
		}
	}
	if xffHeaderName != "" && sourceIP != "" {
		h.Set(xffHeaderName, sourceIP)
	}
	return h
}

// PrepareBody serializes body for dispatch. GET/HEAD never carry a body.
// headers may gain a Content-Type entry as a side effect when body is a
// map or list.
func PrepareBody(method string, body Value, headers http.Header) ([]byte, error) {
	if method == http.MethodGet || method == http.MethodHead {
		return nil, nil
	}
	if body.IsMissing() || body.Kind == KindNull {
		return nil, nil
	}

	switch body.Kind {
	case KindMap, KindList:
		data, err := json.Marshal(body.ToAny())
		if err != nil {
			return nil, err
		}
		if headers.Get("Content-Type") == "" {
			headers.Set("Content-Type", "application/json")
		}
		return data, nil
	case KindString:
		// Sent verbatim whether or not Content-Type declares JSON — the
		// point is never to re-marshal a string the caller already encoded.
		return []byte(body.Str), nil
	default:
		return []byte(body.AsString()), nil
	}
}

// RequestSpec is one fully-prepared HTTP request: URL already built, headers
// already merged, body already prepared.
type RequestSpec struct {
	Method  string
	URL     BuiltURL
	Headers http.Header
	Body    []byte
}

// Do performs spec.URL.RequestURL with the bounded retry policy configured
// on e.client, sets the per-request dial override (if any) into the request
// context, returns any response received (extraction is left to the caller),
// and records one "requests" increment on completion — success or final
// non-2xx, never on a totally failed dispatch.
func (e *Executor) Do(ctx context.Context, spec RequestSpec) (Response, error) {
	if spec.URL.DialHost != "" {
		ctx = WithDialOverride(ctx, spec.URL.DialHost)
	}

	req := e.client.R().SetContext(ctx)
	for k, vs := range spec.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if spec.URL.HostHeader != "" {
		req.SetHeader("Host", spec.URL.HostHeader)
	}
	if len(spec.Body) > 0 {
		req.SetBody(spec.Body)
	}

	resp, err := req.Execute(spec.Method, spec.URL.RequestURL)
	if err != nil {
		return Response{}, err
	}

	e.metrics.IncRequests()
	return Response{Status: resp.StatusCode(), Header: resp.Header(), Body: resp.Body()}, nil
}
