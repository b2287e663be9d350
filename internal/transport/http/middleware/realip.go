package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealIP rewrites r.RemoteAddr to the client address carried in X-Forwarded-For or
// X-Real-Ip, but only when the direct peer is one of the trusted proxies. Headers
// from any other peer are ignored, so they cannot change the rate limit key.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip, ok := forwardedFor(r, trusted); ok {
				r.RemoteAddr = ip
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedFor walks X-Forwarded-For from the right and returns the first hop that
// is not a trusted proxy.
func forwardedFor(r *http.Request, trusted []netip.Prefix) (string, bool) {
	peer, ok := parseAddr(peerIP(r))
	if !ok || !isTrusted(peer, trusted) {
		return "", false
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(v, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		addr, ok := parseAddr(hops[i])
		if !ok {
			return "", false
		}
		if !isTrusted(addr, trusted) || i == 0 {
			return addr.String(), true
		}
	}

	if addr, ok := parseAddr(r.Header.Get("X-Real-Ip")); ok {
		return addr.String(), true
	}
	return "", false
}

func parseAddr(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
