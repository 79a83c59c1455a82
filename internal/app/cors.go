package app

import (
	"net/url"
	"strings"

	"github.com/samber/lo"
)

// originAllowed matches an origin's host against exact hosts, "*.example.com"
// suffix patterns and "host:*" any-port patterns.
func originAllowed(patterns []string) func(string) bool {
	return func(origin string) bool {
		host := originHost(origin)
		return lo.SomeBy(patterns, func(p string) bool { return matchOrigin(p, host) })
	}
}

func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}

func matchOrigin(pattern, host string) bool {
	switch {
	case pattern == host:
		return true
	case strings.HasPrefix(pattern, "*."):
		return strings.HasSuffix(host, pattern[1:])
	case strings.HasSuffix(pattern, ":*"):
		return strings.HasPrefix(host, pattern[:len(pattern)-1])
	}
	return false
}
