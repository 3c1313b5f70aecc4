// Command hstsfetch fetches URLs in order through an HSTS-enforcing HTTP
// client, showing which requests were upgraded to https.
//
//	hstsfetch [--store memory|badger|sqlite] [--path PATH] [-v] URL...
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/lestrrat-go/hsts"
	hstshttp "github.com/lestrrat-go/hsts/http"
	"github.com/lestrrat-go/hsts/store/badgerstore"
	"github.com/lestrrat-go/hsts/store/sqlitestore"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "hstsfetch: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("hstsfetch", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	var storeKind, path string
	var verbose bool
	flags.StringVar(&storeKind, "store", hsts.MemoryStoreKind, "policy store: memory|badger|sqlite")
	flags.StringVar(&path, "path", "", "database directory (badger) or file (sqlite); in-memory when empty")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log policy decisions")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() == 0 {
		return errors.New("no URL given")
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	sqlitePath := path
	if sqlitePath == "" {
		sqlitePath = ":memory:"
	}

	client, err := hstshttp.NewClient(
		hstshttp.WithStoreFactory(badgerstore.Kind, badgerstore.Factory(path, badgerstore.WithLogger(logger))),
		hstshttp.WithStoreFactory(sqlitestore.Kind, sqlitestore.Factory(sqlitePath)),
		hstshttp.WithStore(storeKind),
		hstshttp.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	transport := client.Transport.(*hstshttp.Transport)
	defer func() {
		if err := transport.Close(); err != nil {
			logger.Error("failed to close store", slog.Any("error", err))
		}
	}()

	ctx := context.Background()
	for _, u := range flags.Args() {
		if err := fetch(ctx, client, u, stdout); err != nil {
			return err
		}
	}
	return nil
}

func fetch(ctx context.Context, client *http.Client, u string, stdout io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", u, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %q: %w", u, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	fmt.Fprintf(stdout, "%s %s -> %s %d\n", req.Method, u, resp.Request.URL, resp.StatusCode)
	return nil
}
