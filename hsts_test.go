package hsts_test

import (
	"math"
	"testing"
	"time"

	"github.com/lestrrat-go/hsts"
	"github.com/stretchr/testify/require"
)

func TestParseHeader(t *testing.T) {
	t.Parallel()

	testcases := []struct {
		Name     string
		Input    string
		Expected hsts.Directives
	}{
		{
			Name:     "max-age only",
			Input:    "max-age=31536000",
			Expected: hsts.Directives{"max-age": "31536000"},
		},
		{
			Name:     "includeSubDomains is lower-cased and presence-only",
			Input:    "max-age=31536000; includeSubDomains",
			Expected: hsts.Directives{"max-age": "31536000", "includesubdomains": true},
		},
		{
			Name:     "Directive names are case-insensitive",
			Input:    "Max-Age=10;INCLUDESUBDOMAINS",
			Expected: hsts.Directives{"max-age": "10", "includesubdomains": true},
		},
		{
			Name:     "Double-quoted value",
			Input:    `max-age="31536000"`,
			Expected: hsts.Directives{"max-age": "31536000"},
		},
		{
			Name:     "Single-quoted value",
			Input:    `max-age='31536000'`,
			Expected: hsts.Directives{"max-age": "31536000"},
		},
		{
			Name:     "Mismatched quotes are kept",
			Input:    `max-age="31536000'`,
			Expected: hsts.Directives{"max-age": `"31536000'`},
		},
		{
			Name:     "Whitespace around separators",
			Input:    "  max-age = 60 ;   includeSubDomains  ; preload ",
			Expected: hsts.Directives{"max-age": "60", "includesubdomains": true, "preload": true},
		},
		{
			Name:     "Later directives overwrite earlier ones",
			Input:    "max-age=60; max-age=0",
			Expected: hsts.Directives{"max-age": "0"},
		},
		{
			Name:     "Empty value",
			Input:    "max-age=",
			Expected: hsts.Directives{"max-age": ""},
		},
		{
			Name:     "Empty header",
			Input:    "",
			Expected: hsts.Directives{"": true},
		},
		{
			Name:     "Trailing separator",
			Input:    "max-age=60;",
			Expected: hsts.Directives{"max-age": "60", "": true},
		},
	}

	for _, tc := range testcases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.Expected, hsts.ParseHeader(tc.Input))
		})
	}
}

func TestDirectives(t *testing.T) {
	t.Parallel()

	t.Run("Get", func(t *testing.T) {
		t.Parallel()
		d := hsts.ParseHeader("max-age=60; includeSubDomains")

		var maxAge string
		require.NoError(t, d.Get("Max-Age", &maxAge))
		require.Equal(t, "60", maxAge)

		var include bool
		require.NoError(t, d.Get("includeSubDomains", &include))
		require.True(t, include)

		require.True(t, d.Has("INCLUDESUBDOMAINS"))
		require.False(t, d.Has("preload"))
		require.Error(t, d.Get("preload", &include))
		require.Error(t, d.Get("includesubdomains", &maxAge), "presence-only directive has no string value")
	})

	t.Run("MaxAge", func(t *testing.T) {
		t.Parallel()
		testcases := []struct {
			Input    string
			Expected int64
			OK       bool
		}{
			{Input: "max-age=31536000", Expected: 31536000, OK: true},
			{Input: "max-age=0", Expected: 0, OK: true},
			{Input: "max-age=-5", Expected: -5, OK: true},
			{Input: `max-age="120"`, Expected: 120, OK: true},
			{Input: "max-age=99999999999999999999999", Expected: math.MaxInt64, OK: true},
			{Input: "max-age=1.5"},
			{Input: "max-age=soon"},
			{Input: "max-age="},
			{Input: "max-age"},
			{Input: "includeSubDomains"},
		}
		for _, tc := range testcases {
			maxAge, ok := hsts.ParseHeader(tc.Input).MaxAge()
			require.Equal(t, tc.OK, ok, "input %q", tc.Input)
			require.Equal(t, tc.Expected, maxAge, "input %q", tc.Input)
		}
	})

	t.Run("Policy keeps only retained directives", func(t *testing.T) {
		t.Parallel()
		policy, ok := hsts.ParseHeader("max-age=300; includeSubDomains; preload").Policy()
		require.True(t, ok)
		require.Equal(t, hsts.Policy{MaxAge: 300, IncludeSubDomains: true}, policy)

		_, ok = hsts.ParseHeader("includeSubDomains; preload").Policy()
		require.False(t, ok, "policy without max-age is not usable")
	})
}

func TestExpiresAt(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, hsts.ExpiresAt(now, 60).Equal(now.Add(time.Minute)))
	require.True(t, hsts.ExpiresAt(now, 0).Equal(now))
	require.True(t, hsts.ExpiresAt(now, math.MaxInt64).After(now.AddDate(250, 0, 0)), "huge max-age saturates instead of overflowing")
}
