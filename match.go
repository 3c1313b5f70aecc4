package hsts

import (
	"fmt"
	"iter"
	"net/netip"
	"strings"
)

// IsIPLiteral reports whether host is an IPv4 or IPv6 address literal.
// RFC 6797 excludes such hosts from HSTS processing altogether.
func IsIPLiteral(host string) bool {
	_, err := netip.ParseAddr(host)
	return err == nil
}

// Superdomains yields the strict superdomains of host, from the most
// specific to the least specific. For "a.b.example.com" this is
// "b.example.com", "example.com", "com". A single-label host yields
// nothing.
func Superdomains(host string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := host
		for {
			_, parent, ok := strings.Cut(rest, ".")
			if !ok {
				return
			}
			if !yield(parent) {
				return
			}
			rest = parent
		}
	}
}

// IsKnownHost reports whether requests to host must be upgraded to HTTPS.
//
// An exact match in the store always counts. A superdomain match only
// counts when its policy asserts includeSubDomains. Errors reported by
// the store abort the lookup and are returned.
func IsKnownHost(store Store, host string) (bool, error) {
	if _, ok, err := store.Get(host); err != nil {
		return false, fmt.Errorf("hsts: failed to look up %q: %w", host, err)
	} else if ok {
		return true, nil
	}

	for domain := range Superdomains(host) {
		policy, ok, err := store.Get(domain)
		if err != nil {
			return false, fmt.Errorf("hsts: failed to look up %q: %w", domain, err)
		}
		if ok && policy.IncludeSubDomains {
			return true, nil
		}
	}
	return false, nil
}
