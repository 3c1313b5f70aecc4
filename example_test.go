package hsts_test

import (
	"fmt"

	"github.com/lestrrat-go/hsts"
)

func ExampleParseHeader() {
	directives := hsts.ParseHeader(`max-age="31536000"; includeSubDomains; preload`)

	policy, ok := directives.Policy()
	fmt.Printf("usable=%t max-age=%d includeSubDomains=%t preload=%t\n",
		ok, policy.MaxAge, policy.IncludeSubDomains, directives.Has("preload"))
	// Output:
	// usable=true max-age=31536000 includeSubDomains=true preload=true
}

func ExampleIsKnownHost() {
	store := hsts.NewMemoryStore()
	if err := store.Set("example.com", hsts.Policy{MaxAge: 60, IncludeSubDomains: true}); err != nil {
		panic(err)
	}
	if err := store.Set("example.org", hsts.Policy{MaxAge: 60}); err != nil {
		panic(err)
	}

	for _, host := range []string{"example.com", "api.example.com", "example.org", "www.example.org"} {
		known, err := hsts.IsKnownHost(store, host)
		if err != nil {
			panic(err)
		}
		fmt.Printf("%s: %t\n", host, known)
	}
	// Output:
	// example.com: true
	// api.example.com: true
	// example.org: true
	// www.example.org: false
}
