// Package domainpolicy decides whether an identifier's email domain may log in.
package domainpolicy

import (
	"context"
	"strings"
)

// Checker reports whether the domain of id is allowed.
type Checker interface {
	AllowDomain(ctx context.Context, id string) (bool, error)
}

// AllowAll accepts every identifier.
type AllowAll struct{}

func (AllowAll) AllowDomain(ctx context.Context, id string) (bool, error) {
	return true, nil
}

// ListChecker applies deny and allow lists to the part of the identifier
// after the last "@". A listed domain also covers its subdomains.
type ListChecker struct {
	allow []string
	deny  []string
}

func NewListChecker(allow, deny []string) *ListChecker {
	return &ListChecker{
		allow: normalize(allow),
		deny:  normalize(deny),
	}
}

func (c *ListChecker) AllowDomain(ctx context.Context, id string) (bool, error) {
	domain := Domain(id)

	if domain != "" && matchesAny(domain, c.deny) {
		return false, nil
	}
	if len(c.allow) == 0 {
		return true, nil
	}
	if domain == "" {
		return false, nil
	}
	return matchesAny(domain, c.allow), nil
}

// Domain returns the lower-cased domain of an email-like identifier, or ""
// when there is none.
func Domain(id string) string {
	at := strings.LastIndex(id, "@")
	if at < 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(id[at+1:]))
}

func matchesAny(domain string, list []string) bool {
	for _, d := range list {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

func normalize(list []string) []string {
	out := make([]string, 0, len(list))
	for _, d := range list {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "@")
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
