// Package sprite turns Wikipedia lead images into pixel-art species sprites
// and fetches short species summaries.
package sprite

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"
	"github.com/k3a/html2text"
	"golang.org/x/time/rate"

	"github.com/turtleson01/bird-app/internal/errors"
	"github.com/turtleson01/bird-app/internal/httpclient"
	"github.com/turtleson01/bird-app/internal/logger"
)

// ErrNotFound is returned when a page or its lead image does not exist.
var ErrNotFound = errors.NewStd("no wikipedia page or image")

const maxImageBytes = 20 << 20

// Wiki queries the MediaWiki API of one Wikipedia language edition.
type Wiki struct {
	http    *httpclient.Client
	apiURL  string
	limiter *rate.Limiter
	log     logger.Logger
}

// NewWiki creates a client for language ("ko", "en", ...). ratePerSecond
// bounds every request including image downloads; zero disables limiting.
func NewWiki(client *httpclient.Client, language string, ratePerSecond float64, log logger.Logger) *Wiki {
	if language == "" {
		language = "ko"
	}
	if client == nil {
		client = httpclient.New(nil)
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Wiki{
		http:    client,
		apiURL:  "https://" + language + ".wikipedia.org/w/api.php",
		limiter: rate.NewLimiter(limit, 1),
		log:     log.Module("wikipedia"),
	}
}

// Thumbnail returns the lead image URL of the page titled title, scaled to
// at most size pixels.
func (w *Wiki) Thumbnail(ctx context.Context, title string, size int) (string, error) {
	page, err := w.firstPage(ctx, url.Values{
		"prop":        {"pageimages"},
		"piprop":      {"thumbnail"},
		"pithumbsize": {strconv.Itoa(size)},
		"titles":      {title},
	})
	if err != nil {
		return "", err
	}
	src, err := page.GetString("thumbnail", "source")
	if err != nil || src == "" {
		return "", ErrNotFound
	}
	return src, nil
}

// Summary returns the introduction of the page titled title as plain text.
func (w *Wiki) Summary(ctx context.Context, title string) (string, error) {
	page, err := w.firstPage(ctx, url.Values{
		"prop":    {"extracts"},
		"exintro": {"1"},
		"titles":  {title},
	})
	if err != nil {
		return "", err
	}
	extract, err := page.GetString("extract")
	if err != nil || strings.TrimSpace(extract) == "" {
		return "", ErrNotFound
	}
	return strings.TrimSpace(html2text.HTML2Text(extract)), nil
}

// Download fetches an image
func (w *Wiki) Download(ctx context.Context, imageURL string) ([]byte, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	data, err := w.http.ReadBody(ctx, imageURL, maxImageBytes)
	if err != nil {
		return nil, errors.New(fmt.Errorf("download %s: %w", imageURL, err)).
			Component("sprite").
			Category(errors.CategoryImageFetch).
			Context("url", imageURL).
			Build()
	}
	return data, nil
}

func (w *Wiki) firstPage(ctx context.Context, params url.Values) (*jason.Object, error) {
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("redirects", "1")

	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := w.apiURL + "?" + params.Encode()
	w.log.Debug("querying wikipedia", logger.String("titles", params.Get("titles")), logger.String("prop", params.Get("prop")))

	body, err := w.http.ReadBody(ctx, fullURL, 0)
	if err != nil {
		return nil, errors.New(fmt.Errorf("wikipedia query failed: %w", err)).
			Component("sprite").
			Category(errors.CategoryNetwork).
			Context("titles", params.Get("titles")).
			Build()
	}

	resp, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return nil, errors.New(fmt.Errorf("wikipedia returned invalid JSON: %w", err)).
			Component("sprite").
			Category(errors.CategoryFileParsing).
			Context("titles", params.Get("titles")).
			Build()
	}
	if apiErr, err := resp.GetString("error", "info"); err == nil {
		return nil, errors.Newf("wikipedia API error: %s", apiErr).
			Component("sprite").
			Category(errors.CategoryIntegration).
			Build()
	}

	pages, err := resp.GetObjectArray("query", "pages")
	if err != nil || len(pages) == 0 {
		return nil, ErrNotFound
	}
	page := pages[0]
	if missing, err := page.GetBoolean("missing"); err == nil && missing {
		return nil, ErrNotFound
	}
	if invalid, err := page.GetBoolean("invalid"); err == nil && invalid {
		return nil, ErrNotFound
	}
	return page, nil
}
