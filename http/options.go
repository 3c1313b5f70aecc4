package http

import (
	"log/slog"
	"net/http"

	"github.com/lestrrat-go/hsts"
	"github.com/lestrrat-go/option"
)

type Option = option.Interface

// TransportOption configures a Transport.
type TransportOption interface {
	Option
	transportOption()
}

type transportOption struct {
	Option
}

func (transportOption) transportOption() {}

// Identifier types for options
type identStore struct{}

func (identStore) String() string { return "WithStore" }

type identStoreFactory struct{}

func (identStoreFactory) String() string { return "WithStoreFactory" }

type identTransport struct{}

func (identTransport) String() string { return "WithTransport" }

type identLogger struct{}

func (identLogger) String() string { return "WithLogger" }

// WithStore selects the store holding known HSTS hosts. The selector is
// either an hsts.Store instance, or the name of a store kind registered
// with hsts.RegisterStore or WithStoreFactory. Kinds are instantiated once
// per Transport. Defaults to hsts.MemoryStoreKind.
func WithStore(selector any) TransportOption {
	return transportOption{option.New(identStore{}, selector)}
}

type storeFactory struct {
	kind    string
	factory hsts.StoreFactory
}

// WithStoreFactory makes a store kind available to this Transport only.
// Kinds registered this way take precedence over the global registry.
func WithStoreFactory(kind string, factory hsts.StoreFactory) TransportOption {
	return transportOption{option.New(identStoreFactory{}, storeFactory{kind: kind, factory: factory})}
}

// WithTransport sets the underlying transport.
func WithTransport(transport http.RoundTripper) TransportOption {
	return transportOption{option.New(identTransport{}, transport)}
}

// WithLogger sets the logger used to report upgrades and policy changes
// at debug level. By default nothing is logged.
func WithLogger(logger *slog.Logger) TransportOption {
	return transportOption{option.New(identLogger{}, logger)}
}
