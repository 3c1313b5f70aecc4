package http

import (
	"net/http"
)

// Middleware returns a decorator that adds HSTS enforcement to any
// http.RoundTripper. All RoundTrippers produced by the decorator share the
// stores resolved from the configuration, so a policy learned through one
// of them applies to all of them.
//
// WithTransport is ignored: the decorated RoundTripper is used instead.
func Middleware(options ...TransportOption) (func(http.RoundTripper) http.RoundTripper, error) {
	base, err := NewTransport(options...)
	if err != nil {
		return nil, err
	}

	return func(next http.RoundTripper) http.RoundTripper {
		t := *base
		t.transport = next
		return &t
	}, nil
}
