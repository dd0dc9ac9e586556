package utils

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Headers a reverse proxy uses to report the original client address.
var forwardingHeaders = []string{
	"Forwarded",
	"True-Client-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// ParseTrustedProxies parses CIDR prefixes or bare addresses.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", v, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", v, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// TrustProxies drops forwarding headers unless the peer address is inside
// one of the trusted prefixes. It must run before any middleware that
// rewrites RemoteAddr from those headers.
func TrustProxies(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isTrusted(r.RemoteAddr, trusted) {
				for _, h := range forwardingHeaders {
					r.Header.Del(h)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isTrusted(remoteAddr string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(hostOf(remoteAddr))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the host part of RemoteAddr. Proxy headers are only
// honoured through TrustProxies.
func ClientIP(r *http.Request) string {
	return hostOf(r.RemoteAddr)
}

func hostOf(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// MaskEmail hides most of the local part: "alice@example.com" becomes
// "a***@example.com". Identifiers without "@" keep only their first rune.
func MaskEmail(email string) string {
	local, domain, found := strings.Cut(email, "@")
	runes := []rune(local)
	if len(runes) == 0 {
		return email
	}
	masked := string(runes[0]) + "***"
	if !found {
		return masked
	}
	return masked + "@" + domain
}
