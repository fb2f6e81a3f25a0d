package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/leonardcser/summary-mcp/internal/coordinator"
	"github.com/leonardcser/summary-mcp/internal/pagecache"
)

const DefaultSearchEndpoint = "https://html.duckduckgo.com/html/"

// extractDDGURL extracts the actual URL from DuckDuckGo's redirect URL format
// Input: //duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com&rut=...
// Output: https://example.com
func extractDDGURL(ddgURL string) string {
	if strings.HasPrefix(ddgURL, "//duckduckgo.com/l/") {
		ddgURL = "https:" + ddgURL
	}
	u, err := url.Parse(ddgURL)
	if err != nil {
		return ddgURL
	}
	uddg := u.Query().Get("uddg")
	if uddg == "" {
		return ddgURL
	}
	actualURL, err := url.QueryUnescape(uddg)
	if err != nil {
		return ddgURL
	}
	return actualURL
}

// Searcher lists search results page by page. Pages are kept in the list
// cache under the normalized query and only ever appended in order.
type Searcher struct {
	client   *http.Client
	endpoint string
	lists    *pagecache.Cache[coordinator.ListItem]
}

func NewSearcher(lists *pagecache.Cache[coordinator.ListItem], endpoint string, timeout time.Duration) *Searcher {
	if endpoint == "" {
		endpoint = DefaultSearchEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Searcher{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		lists:    lists,
	}
}

// ListName is the list cache key for query.
func ListName(query string) string {
	return "web_search|" + strings.ToLower(singleLine(query))
}

// Search returns page (0-based) of the results for query. With refresh the
// cached listing is discarded and reloaded from the first page. Pages before
// page that are not cached yet are fetched first so the listing stays
// contiguous.
func (s *Searcher) Search(ctx context.Context, query string, page int, refresh bool) ([]coordinator.ListItem, error) {
	q := singleLine(query)
	if q == "" {
		return nil, fmt.Errorf("empty query")
	}
	if page < 0 {
		return nil, fmt.Errorf("page must not be negative")
	}
	name := ListName(q)
	if refresh {
		s.lists.Invalidate(name)
	} else if items, ok := s.lists.Get(name, page); ok {
		return items, nil
	}

	next := 0
	if snap, ok := s.lists.Snapshot(name); ok {
		next = snap.PagesLoaded
		if len(snap.Items) < snap.PagesLoaded*s.lists.PageSize() {
			// The last cached page was short: there is nothing further.
			return nil, nil
		}
	}
	for p := next; p <= page; p++ {
		items, err := s.fetchPage(ctx, q, p)
		if err != nil {
			return nil, err
		}
		s.lists.Put(name, p, items)
		if len(items) < s.lists.PageSize() {
			if p < page {
				return nil, nil
			}
			break
		}
	}
	items, _ := s.lists.Get(name, page)
	return items, nil
}

func (s *Searcher) fetchPage(ctx context.Context, q string, page int) ([]coordinator.ListItem, error) {
	limit := s.lists.PageSize()
	values := url.Values{"q": {q}, "kl": {"us-en"}}
	if page > 0 {
		offset := page * limit
		values.Set("s", strconv.Itoa(offset))
		values.Set("dc", strconv.Itoa(offset+1))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", NextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	results := make([]coordinator.ListItem, 0, limit)
	doc.Find("div.result.results_links.results_links_deep.web-result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		a := sel.Find("a.result__a").First()
		link := strings.TrimSpace(a.AttrOr("href", ""))
		title := singleLine(a.Text())
		desc := singleLine(sel.Find("a.result__snippet").First().Text())
		if title != "" && link != "" {
			results = append(results, coordinator.ListItem{Key: extractDDGURL(link), Title: title, Description: desc})
		}
		return len(results) < limit
	})

	if len(results) == 0 {
		// Fallback: scan anchor list and nearest snippet up the tree
		doc.Find("a.result__a").EachWithBreak(func(_ int, n *goquery.Selection) bool {
			title := singleLine(n.Text())
			link := strings.TrimSpace(n.AttrOr("href", ""))
			if title == "" || link == "" {
				return true
			}
			desc := singleLine(n.Parents().Find("a.result__snippet").First().Text())
			results = append(results, coordinator.ListItem{Key: extractDDGURL(link), Title: title, Description: desc})
			return len(results) < limit
		})
	}
	return results, nil
}

// singleLine trims and collapses internal whitespace/newlines to single spaces.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
