package market

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/net/html"
)

const (
	// DefaultNewsBaseURL is the Google News RSS search endpoint.
	DefaultNewsBaseURL = "https://news.google.com/rss/search"

	// DefaultNewsTimeout bounds a single headline lookup.
	DefaultNewsTimeout = 5 * time.Second
)

// NewsFetcher retrieves recent headlines from the Google News RSS feed.
type NewsFetcher struct {
	baseURL    string
	httpClient *http.Client
	converter  *md.Converter
	logger     arbor.ILogger
}

// NewsOption configures the NewsFetcher.
type NewsOption func(*NewsFetcher)

// WithNewsBaseURL sets a custom feed URL.
func WithNewsBaseURL(baseURL string) NewsOption {
	return func(f *NewsFetcher) {
		f.baseURL = baseURL
	}
}

// WithNewsHTTPClient sets a custom HTTP client.
func WithNewsHTTPClient(httpClient *http.Client) NewsOption {
	return func(f *NewsFetcher) {
		f.httpClient = httpClient
	}
}

// WithNewsLogger sets a logger.
func WithNewsLogger(logger arbor.ILogger) NewsOption {
	return func(f *NewsFetcher) {
		f.logger = logger
	}
}

// NewNewsFetcher creates a Google News RSS fetcher.
func NewNewsFetcher(opts ...NewsOption) *NewsFetcher {
	f := &NewsFetcher{
		baseURL: DefaultNewsBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultNewsTimeout,
		},
		converter: newDescriptionConverter(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// newDescriptionConverter builds the HTML cleaner for item descriptions.
// Anchors render as their text alone; the item already carries the link.
func newDescriptionConverter() *md.Converter {
	converter := md.NewConverter("", true, nil)
	converter.AddRules(md.Rule{
		Filter: []string{"a"},
		Replacement: func(content string, selection *goquery.Selection, opt *md.Options) *string {
			return md.String(content)
		},
	})
	return converter
}

// Headline is one parsed RSS item.
type Headline struct {
	Title  string
	URL    string
	Source string

	// Summary is the item description with its HTML markup stripped
	Summary string

	// PubDate is the feed's timestamp string, kept as supplied
	PubDate string
}

// Fetch returns up to limit headlines for the query. Korean queries use the
// Korean feed locale so results match the local market coverage.
func (f *NewsFetcher) Fetch(ctx context.Context, query string, korean bool, limit int) ([]Headline, error) {
	params := url.Values{}
	params.Set("q", query)
	if korean {
		params.Set("hl", "ko")
		params.Set("gl", "KR")
		params.Set("ceid", "KR:ko")
	} else {
		params.Set("hl", "en-US")
		params.Set("gl", "US")
		params.Set("ceid", "US:en")
	}

	reqURL := fmt.Sprintf("%s?%s", f.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create news request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    "news feed request failed",
			Endpoint:   "/rss/search",
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse news feed: %w", err)
	}

	var headlines []Headline
	doc.Find("item").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if limit > 0 && len(headlines) >= limit {
			return false
		}

		title := strings.TrimSpace(s.Find("title").First().Text())
		if title == "" {
			return true
		}

		headlines = append(headlines, Headline{
			Title:   title,
			URL:     extractLink(s),
			Source:  strings.TrimSpace(s.Find("source").First().Text()),
			Summary: f.summarize(s),
			PubDate: strings.TrimSpace(s.Find("pubdate").First().Text()),
		})
		return true
	})

	if f.logger != nil {
		f.logger.Debug().
			Str("query", query).
			Int("headlines", len(headlines)).
			Msg("Fetched news headlines")
	}

	return headlines, nil
}

// summarize turns the item description into plain prose. Google News
// descriptions carry entity-escaped anchor markup, so the text node holds
// an HTML fragment that still needs converting.
func (f *NewsFetcher) summarize(s *goquery.Selection) string {
	raw := strings.TrimSpace(s.Find("description").First().Text())
	if raw == "" {
		return ""
	}

	text, err := f.converter.ConvertString(raw)
	if err != nil {
		if f.logger != nil {
			f.logger.Debug().Err(err).Msg("Failed to clean news description")
		}
		return ""
	}
	return strings.TrimSpace(text)
}

// extractLink pulls the item URL out of the feed. The HTML parser treats
// <link> as a void element, so the URL lands in the text node that follows
// the tag rather than inside it.
func extractLink(s *goquery.Selection) string {
	link := s.Find("link").First()
	if link.Length() == 0 {
		return ""
	}

	node := link.Get(0)
	if node.NextSibling != nil && node.NextSibling.Type == html.TextNode {
		return strings.TrimSpace(node.NextSibling.Data)
	}

	// Some feeds keep the URL inside the element
	return strings.TrimSpace(link.Text())
}
