// Package http provides an http.RoundTripper that enforces HTTP Strict
// Transport Security (RFC 6797) on the client side.
//
// A Transport inspects the Strict-Transport-Security header of responses
// received over https and records the declared policy in an hsts.Store.
// Subsequent plaintext requests to a recorded host (or, when the policy
// includes subdomains, to any of its subdomains) are upgraded to https
// before they leave the process.
//
// # Basic Usage
//
//	client, err := http.NewClient()
//	if err != nil {
//		...
//	}
//
//	// Learns the policy of example.com
//	resp, err := client.Get("https://example.com/")
//
//	// Sent as https://example.com/
//	resp, err = client.Get("http://example.com/")
//
// # Selecting a Store
//
// By default each Transport keeps its own in-memory store. Another store
// can be selected either by passing an instance, or by naming a kind that
// has been registered with hsts.RegisterStore:
//
//	hsts.RegisterStore(badgerstore.Kind, badgerstore.Factory("/var/lib/hsts"))
//
//	client, err := http.NewClient(http.WithStore(badgerstore.Kind))
//
// A single request can override the selector through its context:
//
//	ctx := http.WithRequestStore(ctx, myStore)
//	req, _ := nethttp.NewRequestWithContext(ctx, "GET", "http://example.com/", nil)
//
// # Decorating an Existing Transport
//
//	decorate, err := http.Middleware()
//	if err != nil {
//		...
//	}
//	client := &nethttp.Client{Transport: decorate(myTransport)}
package http
