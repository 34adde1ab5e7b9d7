// Package tmdb contains minimal helpers to interact with The Movie Database v3 API
// for title search, trending lists, watch providers, trailers and recommendations.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/allmoviespro/moviefinder/telemetry"
)

const (
	// DefaultBaseURL is the TMDB v3 API root.
	DefaultBaseURL = "https://api.themoviedb.org/3"
	imageBaseURL   = "https://image.tmdb.org/t/p/w500"

	resultLimit = 10
)

// ErrUpstream marks TMDB transport, status, or decode failures. Callers should
// render a retry message rather than surface the wrapped detail to users.
var ErrUpstream = errors.New("tmdb unavailable")

// MediaType distinguishes movies from TV shows in TMDB paths.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// Valid reports whether the media type is one TMDB accepts in its paths.
func (m MediaType) Valid() bool { return m == MediaMovie || m == MediaTV }

// Result is one entry from a search or trending list.
type Result struct {
	ID         int64
	Type       MediaType
	Title      string
	Year       string
	PosterPath string
}

// Details is the detail page payload for a single title.
type Details struct {
	ID         int64
	Type       MediaType
	Title      string
	Year       string
	Overview   string
	PosterPath string
}

// PosterURL returns the w500 poster URL, or empty when no poster exists.
func (d Details) PosterURL() string {
	if d.PosterPath == "" {
		return ""
	}
	return imageBaseURL + d.PosterPath
}

// Providers lists legal watch options for one region, by kind.
type Providers struct {
	Flatrate []string
	Rent     []string
	Buy      []string
}

// Client calls TMDB with an API key. BaseURL and HTTPClient are overridable for tests.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

func New(apiKey string) *Client {
	return &Client{
		APIKey:  apiKey,
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

// getJSON performs one GET against a TMDB path and decodes the response body.
// The api_key query parameter is always added.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	start := time.Now()
	err := c.doGetJSON(ctx, path, params, out)
	telemetry.ObserveUpstream("tmdb", start, err)
	return err
}

func (c *Client) doGetJSON(ctx context.Context, path string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base()+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.URL.RawQuery = params.Encode()
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
		return fmt.Errorf("%w: %s %s: %s", ErrUpstream, path, resp.Status, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUpstream, path, err)
	}
	return nil
}

// listItem covers the fields shared by search, trending and similar entries.
// Movies carry title/release_date, TV carries name/first_air_date.
type listItem struct {
	ID           int64  `json:"id"`
	MediaType    string `json:"media_type"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
	PosterPath   string `json:"poster_path"`
}

func (it listItem) title() string {
	if it.Title != "" {
		return it.Title
	}
	return it.Name
}

func (it listItem) year() string {
	d := it.ReleaseDate
	if d == "" {
		d = it.FirstAirDate
	}
	if len(d) >= 4 {
		return d[:4]
	}
	return ""
}

// Search queries the multi-search endpoint and keeps the first ten movie/tv hits.
// Person results and other media types are dropped.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	params.Set("language", "en-US")
	params.Set("page", "1")
	var body struct {
		Results []listItem `json:"results"`
	}
	if err := c.getJSON(ctx, "/search/multi", params, &body); err != nil {
		return nil, err
	}
	out := make([]Result, 0, resultLimit)
	for _, it := range body.Results {
		mt := MediaType(it.MediaType)
		if !mt.Valid() {
			continue
		}
		out = append(out, Result{ID: it.ID, Type: mt, Title: it.title(), Year: it.year(), PosterPath: it.PosterPath})
		if len(out) == resultLimit {
			break
		}
	}
	return out, nil
}

// Trending returns today's trending movies and TV shows, up to ten of each.
func (c *Client) Trending(ctx context.Context) (movies, tv []Result, err error) {
	movies, err = c.trendingList(ctx, MediaMovie)
	if err != nil {
		return nil, nil, err
	}
	tv, err = c.trendingList(ctx, MediaTV)
	if err != nil {
		return nil, nil, err
	}
	return movies, tv, nil
}

func (c *Client) trendingList(ctx context.Context, mt MediaType) ([]Result, error) {
	var body struct {
		Results []listItem `json:"results"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/trending/%s/day", mt), nil, &body); err != nil {
		return nil, err
	}
	out := make([]Result, 0, resultLimit)
	for _, it := range body.Results {
		out = append(out, Result{ID: it.ID, Type: mt, Title: it.title(), Year: it.year(), PosterPath: it.PosterPath})
		if len(out) == resultLimit {
			break
		}
	}
	return out, nil
}

// Details fetches the detail page for one title.
func (c *Client) Details(ctx context.Context, mt MediaType, id int64) (Details, error) {
	if !mt.Valid() {
		return Details{}, fmt.Errorf("invalid media type %q", mt)
	}
	params := url.Values{}
	params.Set("language", "en-US")
	var body struct {
		listItem
		Overview string `json:"overview"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/%s/%d", mt, id), params, &body); err != nil {
		return Details{}, err
	}
	return Details{
		ID:         id,
		Type:       mt,
		Title:      body.title(),
		Year:       body.year(),
		Overview:   body.Overview,
		PosterPath: body.PosterPath,
	}, nil
}

// Providers returns the legal watch options for a title in the given region.
// Names within each kind are deduplicated; an unknown region yields empty lists.
func (c *Client) Providers(ctx context.Context, mt MediaType, id int64, region string) (Providers, error) {
	if !mt.Valid() {
		return Providers{}, fmt.Errorf("invalid media type %q", mt)
	}
	type providerRef struct {
		ProviderName string `json:"provider_name"`
	}
	var body struct {
		Results map[string]struct {
			Flatrate []providerRef `json:"flatrate"`
			Rent     []providerRef `json:"rent"`
			Buy      []providerRef `json:"buy"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/%s/%d/watch/providers", mt, id), nil, &body); err != nil {
		return Providers{}, err
	}
	regional := body.Results[region]
	names := func(refs []providerRef) []string {
		seen := make(map[string]struct{}, len(refs))
		var out []string
		for _, r := range refs {
			if r.ProviderName == "" {
				continue
			}
			if _, ok := seen[r.ProviderName]; ok {
				continue
			}
			seen[r.ProviderName] = struct{}{}
			out = append(out, r.ProviderName)
		}
		return out
	}
	return Providers{
		Flatrate: names(regional.Flatrate),
		Rent:     names(regional.Rent),
		Buy:      names(regional.Buy),
	}, nil
}

// TrailerURL returns a YouTube watch link for the first trailer or teaser, or
// empty string when the title has none. Absence is not an error.
func (c *Client) TrailerURL(ctx context.Context, mt MediaType, id int64) (string, error) {
	if !mt.Valid() {
		return "", fmt.Errorf("invalid media type %q", mt)
	}
	var body struct {
		Results []struct {
			Site string `json:"site"`
			Type string `json:"type"`
			Key  string `json:"key"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/%s/%d/videos", mt, id), nil, &body); err != nil {
		return "", err
	}
	for _, v := range body.Results {
		if v.Site == "YouTube" && (v.Type == "Trailer" || v.Type == "Teaser") && v.Key != "" {
			return "https://www.youtube.com/watch?v=" + v.Key, nil
		}
	}
	return "", nil
}

// Similar returns up to ten titles similar to the given one. The media type of
// each result follows the input; TMDB's similar endpoint does not mix types.
func (c *Client) Similar(ctx context.Context, mt MediaType, id int64) ([]Result, error) {
	if !mt.Valid() {
		return nil, fmt.Errorf("invalid media type %q", mt)
	}
	params := url.Values{}
	params.Set("language", "en-US")
	params.Set("page", "1")
	var body struct {
		Results []listItem `json:"results"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/%s/%d/similar", mt, id), params, &body); err != nil {
		return nil, err
	}
	out := make([]Result, 0, resultLimit)
	for _, it := range body.Results {
		out = append(out, Result{ID: it.ID, Type: mt, Title: it.title(), Year: it.year(), PosterPath: it.PosterPath})
		if len(out) == resultLimit {
			break
		}
	}
	return out, nil
}
