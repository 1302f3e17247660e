package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgnsrekt/drill/internal/deck"
)

const fetchTimeout = 30 * time.Second

// source provides a readable deck source.
type source struct {
	reader io.ReadCloser
	// Path is the absolute file path, empty for stdin and URLs.
	Path string
	URL  string
}

func (s *source) String() string {
	switch {
	case s.Path != "":
		return s.Path
	case s.URL != "":
		return s.URL
	default:
		return "stdin"
	}
}

// sourceFromArg parses an argument and creates a readable source for it.
func sourceFromArg(ctx context.Context, arg string) (*source, error) {
	// from stdin
	if arg == "-" {
		return &source{reader: io.NopCloser(os.Stdin)}, nil
	}

	// HTTP(S) URLs:
	if u, err := url.ParseRequestURI(arg); err == nil && strings.Contains(arg, "://") {
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("%s is not a supported protocol", u.Scheme)
		}
		ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("unable to create request: %w", err)
		}
		// consumer of the source is responsible for closing the ReadCloser.
		resp, err := http.DefaultClient.Do(req) //nolint:bodyclose
		if err != nil {
			cancel()
			return nil, fmt.Errorf("unable to get url: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			cancel()
			return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
		}
		return &source{reader: cancelCloser{resp.Body, cancel}, URL: u.String()}, nil
	}

	path := expandPath(arg)
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory, expected a CSV file", arg)
	}
	r, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &source{reader: r, Path: abs}, nil
}

// cancelCloser releases the request context together with the body.
type cancelCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelCloser) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close() //nolint:wrapcheck
}

// importSource reads the deck at arg.
func importSource(ctx context.Context, arg string, layout deck.Layout) (deck.ImportResult, error) {
	src, err := sourceFromArg(ctx, arg)
	if err != nil {
		return deck.ImportResult{}, err
	}
	defer src.reader.Close() //nolint:errcheck

	res, err := deck.ImportCSV(src.reader, layout)
	if err != nil {
		return deck.ImportResult{}, fmt.Errorf("unable to import %s: %w", src, err)
	}
	return res, nil
}
