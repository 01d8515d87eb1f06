// Package security holds request origin policy shared by the REST API and
// the WebSocket stream.
package security

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginPolicy decides which browser origins may call the API.
//
// A request without an Origin header is same-origin and always allowed, as
// are localhost origins and origins whose host equals the request host.
// Configured entries match exactly, "*.example.com" matches any subdomain
// and "*" allows every origin.
type OriginPolicy struct {
	any      bool
	exact    map[string]bool
	suffixes []string
}

// NewOriginPolicy creates a policy from the configured allowed origins.
func NewOriginPolicy(allowed []string) *OriginPolicy {
	p := &OriginPolicy{exact: make(map[string]bool)}
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		switch {
		case o == "":
		case o == "*":
			p.any = true
		case strings.HasPrefix(o, "*."):
			p.suffixes = append(p.suffixes, o[1:])
		default:
			p.exact[o] = true
		}
	}
	return p
}

// AllowsAny reports whether every origin is allowed.
func (p *OriginPolicy) AllowsAny() bool {
	return p.any
}

// Allowed reports whether origin may call a server reached as requestHost.
func (p *OriginPolicy) Allowed(origin, requestHost string) bool {
	if origin == "" || p.any {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())

	if isLocalhost(host) {
		return true
	}
	if p.exact[strings.ToLower(strings.TrimRight(origin, "/"))] {
		return true
	}
	for _, suffix := range p.suffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return requestHost != "" && strings.EqualFold(parsed.Host, requestHost)
}

// CheckOrigin validates the Origin header of r. It fits
// websocket.Upgrader.CheckOrigin.
func (p *OriginPolicy) CheckOrigin(r *http.Request) bool {
	return p.Allowed(r.Header.Get("Origin"), r.Host)
}

func isLocalhost(host string) bool {
	return host == "localhost" ||
		host == "127.0.0.1" ||
		host == "::1" ||
		strings.HasSuffix(host, ".localhost")
}
