// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package zotero reads collections, items and attachment files from a
// Zotero library through the Zotero web API v3.
package zotero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/litharvest/internal/httputil"
	"github.com/pdiddy/litharvest/pkg/types"
)

// ErrMissingCredentials is returned when the API key or library ID is unset.
var ErrMissingCredentials = errors.New("zotero API key or library ID not set")

const apiVersion = "3"

// Client talks to one Zotero library.
type Client struct {
	HTTP *http.Client
	cfg  types.ZoteroConfig
}

// New returns a client for the library in cfg. Unset fields take the
// values of types.DefaultZoteroConfig.
func New(cfg types.ZoteroConfig) (*Client, error) {
	if cfg.APIKey == "" || cfg.LibraryID == "" {
		return nil, ErrMissingCredentials
	}
	def := types.DefaultZoteroConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.LibraryType == "" {
		cfg.LibraryType = def.LibraryType
	}
	if cfg.LibraryType != types.LibraryGroup && cfg.LibraryType != types.LibraryUser {
		return nil, fmt.Errorf("unknown library type %q (want group or user)", cfg.LibraryType)
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 100 {
		cfg.PageSize = def.PageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	return &Client{
		HTTP: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
	}, nil
}

// libraryPath returns "/groups/<id>" or "/users/<id>".
func (c *Client) libraryPath() string {
	return "/" + string(c.cfg.LibraryType) + "s/" + url.PathEscape(c.cfg.LibraryID)
}

func (c *Client) newRequest(ctx context.Context, path string, params url.Values) (*http.Request, error) {
	u := c.cfg.BaseURL + c.libraryPath() + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Zotero-API-Key", c.cfg.APIKey)
	req.Header.Set("Zotero-API-Version", apiVersion)
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	return req, nil
}

// do sends the request with retry and returns the response when it is 200.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := httputil.DoWithRetry(req.Context(), c.HTTP, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("zotero request %s: %w", req.URL.Path, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("zotero %s returned HTTP %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// getJSON decodes one response into v and returns the Total-Results header,
// or -1 when it is absent.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) (int, error) {
	req, err := c.newRequest(ctx, path, params)
	if err != nil {
		return 0, err
	}
	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return 0, fmt.Errorf("parsing %s response: %w", path, err)
	}
	total := -1
	if s := resp.Header.Get("Total-Results"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			total = n
		}
	}
	return total, nil
}

// getAll follows limit/start pagination until Total-Results entries (or a
// short page) have been read.
func getAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out []T
	for start := 0; ; {
		params := url.Values{
			"limit": {strconv.Itoa(c.cfg.PageSize)},
			"start": {strconv.Itoa(start)},
		}
		var page []T
		total, err := c.getJSON(ctx, path, params, &page)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		start += len(page)
		if len(page) == 0 || (total >= 0 && start >= total) || (total < 0 && len(page) < c.cfg.PageSize) {
			return out, nil
		}
	}
}
