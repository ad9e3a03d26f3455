// Package source loads page input for the CLI from files, stdin or URLs.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/domnode/internal/logger"
)

// ErrEmptyInput is returned when the input holds no bytes.
var ErrEmptyInput = errors.New("empty input")

// ErrTooLarge is returned when the input exceeds Config.MaxBytes.
var ErrTooLarge = errors.New("input too large")

// Input formats understood by the readers.
const (
	FormatHTML = "html"
	FormatCDP  = "cdp"
	FormatTree = "tree"
)

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Input is loaded page content.
type Input struct {
	Name        string // file path, URL or "-"
	ContentType string // response content type, URLs only
	Data        []byte
}

// Config holds configuration for loading input.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Headers   map[string]string
	Stdin     io.Reader
	MaxBytes  int64 // 0 means unlimited
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent: defaultUserAgent,
		Timeout:   30 * time.Second,
		Stdin:     os.Stdin,
	}
}

// Load reads target, which is a file path, an http(s) URL, or "-" for stdin.
func Load(ctx context.Context, target string, cfg Config) (*Input, error) {
	var in *Input
	var err error
	switch {
	case target == "" || target == "-":
		in, err = readStdin(cfg)
	case IsURL(target):
		in, err = fetch(ctx, target, cfg)
	default:
		in, err = readFile(target, cfg.MaxBytes)
	}
	if err != nil {
		return nil, err
	}
	if len(in.Data) == 0 {
		return nil, fmt.Errorf("%s: %w", in.Name, ErrEmptyInput)
	}
	logger.Debug("input loaded", "source", in.Name, "size", len(in.Data))
	return in, nil
}

// IsURL reports whether target looks like an http(s) URL.
func IsURL(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func readStdin(cfg Config) (*Input, error) {
	r := cfg.Stdin
	if r == nil {
		r = os.Stdin
	}
	data, err := readLimited(r, cfg.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return &Input{Name: "-", Data: data}, nil
}

func readFile(path string, limit int64) (*Input, error) {
	f, err := os.Open(path) //#nosec G304 -- CLI tool reads user-specified input file
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := readLimited(f, limit)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &Input{Name: path, Data: data}, nil
}

// readLimited reads r to the end, failing with ErrTooLarge once more than
// limit bytes arrive. Only limit+1 bytes are ever buffered.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

// fetch retrieves a page with a static Colly request.
func fetch(ctx context.Context, target string, cfg Config) (*Input, error) {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.StdlibContext(ctx),
	)
	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	}
	// colly truncates bodies at MaxBodySize, so read one byte past the
	// limit to tell a full body from a truncated one.
	c.MaxBodySize = 0
	if cfg.MaxBytes > 0 {
		c.MaxBodySize = int(cfg.MaxBytes + 1)
	}
	if len(cfg.Headers) > 0 {
		c.OnRequest(func(r *colly.Request) {
			for k, v := range cfg.Headers {
				r.Headers.Set(k, v)
			}
		})
	}

	in := &Input{Name: target}
	var fetchErr error
	c.OnResponse(func(r *colly.Response) {
		in.ContentType = r.Headers.Get("Content-Type")
		in.Data = r.Body
		logger.Debug("fetch response received",
			"status", r.StatusCode,
			"content_type", in.ContentType,
			"body_size", len(r.Body))
	})
	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = fmt.Errorf("fetch %s (status %d): %w", target, status, err)
	})

	logger.Debug("fetching", "url", target, "timeout", cfg.Timeout)
	if err := c.Visit(target); err != nil && fetchErr == nil {
		return nil, fmt.Errorf("visit %s: %w", target, err)
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if cfg.MaxBytes > 0 && int64(len(in.Data)) > cfg.MaxBytes {
		return nil, fmt.Errorf("fetch %s: %w: more than %d bytes", target, ErrTooLarge, cfg.MaxBytes)
	}
	return in, nil
}

// DetectFormat guesses the reader for an input. JSON documents with a
// "documents" member are snapshots, other JSON documents are serialized
// trees, and everything else is HTML.
func DetectFormat(in *Input) string {
	trimmed := bytes.TrimSpace(in.Data)
	isJSON := strings.EqualFold(filepath.Ext(in.Name), ".json") ||
		strings.Contains(in.ContentType, "json") ||
		bytes.HasPrefix(trimmed, []byte("{"))
	if !isJSON {
		return FormatHTML
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return FormatHTML
	}
	if _, ok := probe["documents"]; ok {
		return FormatCDP
	}
	return FormatTree
}
