// Package hsts implements client-side enforcement of HTTP Strict Transport
// Security (RFC 6797).
//
// The package provides the pieces that carry the policy logic: a Store that
// associates domains with expiring policies, a parser for the
// Strict-Transport-Security header, and a matcher that decides whether a
// host (or one of its superdomains) is a known HSTS host. The http
// subpackage wires these into an http.RoundTripper.
package hsts

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/blackmagic"
)

const (
	// HeaderName is the response header carrying the HSTS policy.
	HeaderName = "Strict-Transport-Security"

	// DirectiveMaxAge is the (lower-cased) name of the max-age directive.
	DirectiveMaxAge = "max-age"

	// DirectiveIncludeSubDomains is the (lower-cased) name of the
	// includeSubDomains directive.
	DirectiveIncludeSubDomains = "includesubdomains"
)

// ErrInvalidStore is returned when a store selector is neither a Store
// nor the name of a registered store kind.
var ErrInvalidStore = errors.New("hsts: invalid store")

// maxAgeLimit is the largest max-age, in seconds, that fits in a time.Duration.
const maxAgeLimit = int64(math.MaxInt64 / int64(time.Second))

// Policy is the part of an HSTS declaration that is retained in a Store.
type Policy struct {
	// MaxAge is the declared lifetime of the policy, in seconds.
	MaxAge int64
	// IncludeSubDomains extends the policy to all subdomains of the host.
	IncludeSubDomains bool
}

// ExpiresAt computes the absolute expiry of a policy declared at now with
// the given max-age. Values that do not fit in a time.Duration saturate.
func ExpiresAt(now time.Time, maxAge int64) time.Time {
	if maxAge > maxAgeLimit {
		maxAge = maxAgeLimit
	}
	return now.Add(time.Duration(maxAge) * time.Second)
}

// Directives holds the parsed directives of a single
// Strict-Transport-Security header value. Keys are lower-cased directive
// names; values are either a string, or true for directives that carry
// no value.
type Directives map[string]any

// ParseHeader parses a single Strict-Transport-Security header value.
//
// The value is split on ';' and each segment is trimmed. A segment of the
// form name=value (the value optionally wrapped in matching quotes) maps
// name to value; any other segment maps to true. Later directives
// overwrite earlier ones with the same name. No input is rejected:
// semantic validation is left to the caller.
func ParseHeader(value string) Directives {
	directives := make(Directives)
	for _, segment := range strings.Split(value, ";") {
		segment = strings.TrimSpace(segment)

		name, v, ok := strings.Cut(segment, "=")
		if !ok {
			directives[strings.ToLower(segment)] = true
			continue
		}
		directives[strings.ToLower(strings.TrimSpace(name))] = unquote(strings.TrimSpace(v))
	}
	return directives
}

func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	if first := s[0]; (first == '"' || first == '\'') && s[len(s)-1] == first {
		return s[1 : len(s)-1]
	}
	return s
}

// Has reports whether the directive was present.
func (d Directives) Has(name string) bool {
	_, ok := d[strings.ToLower(name)]
	return ok
}

// Get assigns the value of the named directive to dst, which must be a
// pointer to a type compatible with the stored value (string or bool).
func (d Directives) Get(name string, dst any) error {
	v, ok := d[strings.ToLower(name)]
	if !ok {
		return errors.New("hsts: directive " + strconv.Quote(name) + " not found")
	}
	return blackmagic.AssignIfCompatible(dst, v)
}

// MaxAge returns the max-age directive as a number of seconds. The second
// return value is false when the directive is missing, carries no value,
// or is not a base-10 integer. Values exceeding the int64 range saturate.
func (d Directives) MaxAge() (int64, bool) {
	var raw string
	if err := d.Get(DirectiveMaxAge, &raw); err != nil {
		return 0, false
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// ParseInt returns the clamped value alongside ErrRange
		if errors.Is(err, strconv.ErrRange) {
			return n, true
		}
		return 0, false
	}
	return n, true
}

// Policy extracts the retained part of the directives: max-age and
// includeSubDomains. Everything else (e.g. preload) is dropped. The second
// return value is false when max-age is not usable, in which case the
// header must not cause any store mutation.
func (d Directives) Policy() (Policy, bool) {
	maxAge, ok := d.MaxAge()
	if !ok {
		return Policy{}, false
	}
	return Policy{
		MaxAge:            maxAge,
		IncludeSubDomains: d.Has(DirectiveIncludeSubDomains),
	}, true
}
