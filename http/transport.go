package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/lestrrat-go/hsts"
	"github.com/puzpuzpuz/xsync/v3"
)

// Transport is an http.RoundTripper that enforces HSTS.
//
// Plaintext requests to known HSTS hosts are upgraded to https before they
// are sent, and Strict-Transport-Security headers received over https are
// recorded in the configured store.
type Transport struct {
	transport http.RoundTripper
	selector  any
	factories map[string]hsts.StoreFactory
	stores    *xsync.MapOf[string, hsts.Store]
	logger    *slog.Logger
}

// NewTransport creates a new Transport. The configured store selector is
// validated immediately; an invalid selector is reported as an error
// wrapping hsts.ErrInvalidStore.
func NewTransport(options ...TransportOption) (*Transport, error) {
	t := &Transport{
		transport: http.DefaultTransport,
		selector:  hsts.MemoryStoreKind,
		factories: make(map[string]hsts.StoreFactory),
		stores:    xsync.NewMapOf[string, hsts.Store](),
		logger:    slog.New(slog.DiscardHandler),
	}

	for _, opt := range options {
		switch opt.Ident() {
		case identStore{}:
			t.selector = opt.Value()
		case identStoreFactory{}:
			sf := opt.Value().(storeFactory)
			if sf.factory == nil {
				return nil, fmt.Errorf("%w: nil factory for store kind %q", hsts.ErrInvalidStore, sf.kind)
			}
			t.factories[sf.kind] = sf.factory
		case identTransport{}:
			if rt, ok := opt.Value().(http.RoundTripper); ok && rt != nil {
				t.transport = rt
			}
		case identLogger{}:
			if logger, ok := opt.Value().(*slog.Logger); ok && logger != nil {
				t.logger = logger
			}
		}
	}

	if err := t.validate(t.selector); err != nil {
		return nil, err
	}
	return t, nil
}

// NewClient creates an http.Client that enforces HSTS on every request.
func NewClient(options ...TransportOption) (*http.Client, error) {
	transport, err := NewTransport(options...)
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: transport,
	}, nil
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	store, err := t.storeFor(req.Context())
	if err != nil {
		closeRequestBody(req)
		return nil, err
	}

	forwarded, err := t.rewrite(store, req)
	if err != nil {
		closeRequestBody(req)
		return nil, err
	}

	resp, err := t.transport.RoundTrip(forwarded)
	if err != nil {
		return nil, err
	}

	if err := t.register(store, forwarded, resp); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// Store returns the store requests are checked against when they do not
// carry their own selector.
func (t *Transport) Store() (hsts.Store, error) {
	return t.resolve(t.selector)
}

// Close closes all stores instantiated by this Transport from a store
// kind. Stores passed in as instances are left to their owner.
func (t *Transport) Close() error {
	var errs []error
	t.stores.Range(func(kind string, store hsts.Store) bool {
		if closer, ok := store.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("hsts: failed to close store %q: %w", kind, err))
			}
		}
		t.stores.Delete(kind)
		return true
	})
	return errors.Join(errs...)
}

// rewrite upgrades req to https when its host is a known HSTS host.
func (t *Transport) rewrite(store hsts.Store, req *http.Request) (*http.Request, error) {
	if req.URL.Scheme != "http" {
		return req, nil
	}

	host := req.URL.Hostname()
	if host == "" || hsts.IsIPLiteral(host) {
		return req, nil
	}

	known, err := hsts.IsKnownHost(store, host)
	if err != nil {
		return nil, err
	}
	if !known {
		return req, nil
	}

	upgraded := req.Clone(req.Context())
	upgraded.URL.Scheme = "https"
	t.logger.Debug("hsts: upgraded request", slog.String("host", host), slog.String("url", upgraded.URL.String()))
	return upgraded, nil
}

// register records the policy declared by resp, which must have been
// received in response to req.
func (t *Transport) register(store hsts.Store, req *http.Request, resp *http.Response) error {
	if req.URL.Scheme != "https" {
		return nil
	}

	// Only the first header is processed (RFC 6797 Section 8.1)
	values := resp.Header.Values(hsts.HeaderName)
	if len(values) == 0 {
		return nil
	}

	host := req.URL.Hostname()
	if host == "" || hsts.IsIPLiteral(host) {
		return nil
	}

	policy, ok := hsts.ParseHeader(values[0]).Policy()
	if !ok {
		t.logger.Debug("hsts: ignoring header without usable max-age", slog.String("host", host), slog.String("value", values[0]))
		return nil
	}

	if policy.MaxAge < 1 {
		if err := store.Delete(host); err != nil {
			return fmt.Errorf("hsts: failed to revoke policy for %q: %w", host, err)
		}
		t.logger.Debug("hsts: revoked policy", slog.String("host", host))
		return nil
	}

	if err := store.Set(host, policy); err != nil {
		return fmt.Errorf("hsts: failed to record policy for %q: %w", host, err)
	}
	t.logger.Debug("hsts: recorded policy",
		slog.String("host", host),
		slog.Int64("max_age", policy.MaxAge),
		slog.Bool("include_subdomains", policy.IncludeSubDomains))
	return nil
}

func (t *Transport) storeFor(ctx context.Context) (hsts.Store, error) {
	if selector, ok := StoreFromContext(ctx); ok {
		return t.resolve(selector)
	}
	return t.resolve(t.selector)
}

func (t *Transport) lookup(kind string) (hsts.StoreFactory, bool) {
	if factory, ok := t.factories[kind]; ok {
		return factory, true
	}
	return hsts.LookupStore(kind)
}

func (t *Transport) validate(selector any) error {
	switch v := selector.(type) {
	case hsts.Store:
		if isNilStore(v) {
			return fmt.Errorf("%w: nil %T", hsts.ErrInvalidStore, v)
		}
		return nil
	case string:
		if _, ok := t.lookup(v); !ok {
			return fmt.Errorf("%w: unknown store kind %q", hsts.ErrInvalidStore, v)
		}
		return nil
	default:
		return fmt.Errorf("%w: selector must be an hsts.Store or a store kind, got %T", hsts.ErrInvalidStore, selector)
	}
}

// resolve maps a store selector to a Store. Store kinds are instantiated
// at most once per Transport, even under concurrent first use.
func (t *Transport) resolve(selector any) (hsts.Store, error) {
	if err := t.validate(selector); err != nil {
		return nil, err
	}

	kind, ok := selector.(string)
	if !ok {
		return selector.(hsts.Store), nil
	}

	if store, ok := t.stores.Load(kind); ok {
		return store, nil
	}

	factory, _ := t.lookup(kind)
	var ferr error
	store, _ := t.stores.Compute(kind, func(existing hsts.Store, loaded bool) (hsts.Store, bool) {
		if loaded {
			return existing, false
		}
		created, err := factory()
		if err != nil {
			ferr = fmt.Errorf("hsts: failed to create store %q: %w", kind, err)
			return nil, true
		}
		if isNilStore(created) {
			ferr = fmt.Errorf("%w: factory for store kind %q returned nil", hsts.ErrInvalidStore, kind)
			return nil, true
		}
		return created, false
	})
	if ferr != nil {
		return nil, ferr
	}
	return store, nil
}

// isNilStore reports whether store is nil, including a typed nil pointer
// wrapped in the interface.
func isNilStore(store hsts.Store) bool {
	if store == nil {
		return true
	}
	switch rv := reflect.ValueOf(store); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func closeRequestBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
