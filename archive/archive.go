// Package archive searches the Internet Archive for public-domain and
// CC-licensed copies of a title. Items without a license URL never leave this
// package; that filter is the visibility gate for everything rendered to users.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/allmoviespro/moviefinder/telemetry"
)

const (
	// DefaultBaseURL is the archive.org root; search, metadata and download
	// paths all hang off it.
	DefaultBaseURL = "https://archive.org"

	// DefaultLimit caps how many archive items one lookup returns.
	DefaultLimit = 5

	maxLinksPerItem = 5
)

// ErrUpstream marks archive.org transport, status, or decode failures.
// Zero results is NOT an upstream error; it is the common case.
var ErrUpstream = errors.New("archive unavailable")

// videoExts are the playable file extensions surfaced as download links.
var videoExts = map[string]struct{}{
	"mp4": {}, "m4v": {}, "webm": {}, "ogv": {},
}

// Item is one archive entry with a verified license declaration.
type Item struct {
	Identifier string
	Title      string
	Year       string
	LicenseURL string
	Links      []string
}

// Client calls the Internet Archive. BaseURL and HTTPClient are overridable for tests.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New() *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		HTTPClient: &http.Client{
			Timeout: 25 * time.Second,
		},
	}
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return DefaultBaseURL
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	start := time.Now()
	err := c.doGetJSON(ctx, rawURL, out)
	telemetry.ObserveUpstream("archive", start, err)
	return err
}

func (c *Client) doGetJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: %s", ErrUpstream, resp.Status, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	return nil
}

type searchDoc struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Year       any    `json:"year"` // archive.org returns numbers or strings here
	LicenseURL string `json:"licenseurl"`
}

func (d searchDoc) year() string {
	switch v := d.Year.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

// SearchPublicDomain finds up to limit items matching the title that declare a
// license URL and contain at least one playable video file. Items missing
// either are dropped. The underlying match is a fuzzy title search; hits are
// best-effort, not exact.
func (c *Client) SearchPublicDomain(ctx context.Context, title string, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := fmt.Sprintf(`title:(%q) AND mediatype:(movies OR video) AND licenseurl:*`, title)
	params := url.Values{}
	params.Set("q", q)
	params.Add("fl[]", "identifier")
	params.Add("fl[]", "title")
	params.Add("fl[]", "year")
	params.Add("fl[]", "licenseurl")
	params.Add("sort[]", "downloads desc")
	params.Set("rows", fmt.Sprintf("%d", limit))
	params.Set("page", "1")
	params.Set("output", "json")

	var body struct {
		Response struct {
			Docs []searchDoc `json:"docs"`
		} `json:"response"`
	}
	if err := c.getJSON(ctx, c.base()+"/advancedsearch.php?"+params.Encode(), &body); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(body.Response.Docs))
	for _, d := range body.Response.Docs {
		// The query already filters on licenseurl:*, but the invariant is
		// enforced here regardless: no license URL, no visibility.
		if d.Identifier == "" || d.LicenseURL == "" {
			continue
		}
		links, err := c.videoLinks(ctx, d.Identifier)
		if err != nil {
			// One broken item shouldn't sink the whole result set.
			slog.Warn("archive metadata fetch failed", slog.String("identifier", d.Identifier), slog.Any("err", err))
			continue
		}
		if len(links) == 0 {
			continue
		}
		items = append(items, Item{
			Identifier: d.Identifier,
			Title:      d.Title,
			Year:       d.year(),
			LicenseURL: d.LicenseURL,
			Links:      links,
		})
	}
	return items, nil
}

// videoLinks lists playable download links for one archive item.
func (c *Client) videoLinks(ctx context.Context, identifier string) ([]string, error) {
	var meta struct {
		Files []struct {
			Name string `json:"name"`
		} `json:"files"`
	}
	if err := c.getJSON(ctx, c.base()+"/metadata/"+url.PathEscape(identifier), &meta); err != nil {
		return nil, err
	}
	var links []string
	for _, f := range meta.Files {
		if f.Name == "" || strings.HasSuffix(f.Name, ".thumbs") {
			continue
		}
		idx := strings.LastIndex(f.Name, ".")
		if idx < 0 {
			continue
		}
		ext := strings.ToLower(f.Name[idx+1:])
		if _, ok := videoExts[ext]; !ok {
			continue
		}
		links = append(links, c.base()+"/download/"+identifier+"/"+f.Name)
		if len(links) == maxLinksPerItem {
			break
		}
	}
	return links, nil
}
