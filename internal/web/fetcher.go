package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	DefaultRequestTimeout = 20 * time.Second
	MaxResponseSize       = 1 * 1024 * 1024 // 1MB
)

// Page is the raw material extracted from a fetched URL.
type Page struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Markdown    string `json:"markdown"`
}

type FetcherOptions struct {
	RequestTimeout time.Duration
	// Delay between two requests to the same domain.
	Delay time.Duration
}

// Fetcher downloads pages one at a time per domain.
type Fetcher struct {
	c *colly.Collector
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
		colly.MaxBodySize(MaxResponseSize),
	)
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       opts.Delay,
	})
	c.SetRequestTimeout(opts.RequestTimeout)
	return &Fetcher{c: c}
}

// Fetch retrieves rawURL and converts its body to markdown.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, errors.New("url must start with http:// or https://")
	}

	// A clone shares the HTTP backend and limit rules but gets its own
	// callbacks, so concurrent fetches do not see each other's responses.
	c := f.c.Clone()
	c.Context = ctx
	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("User-Agent", NextUserAgent())
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
	})

	var body []byte
	var finalURL, contentType string
	c.OnResponse(func(r *colly.Response) {
		finalURL = r.Request.URL.String()
		body = append([]byte(nil), r.Body...)
		contentType = r.Headers.Get("Content-Type")
	})

	if err := c.Visit(rawURL); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}

	lowerCT := strings.ToLower(contentType)
	if !strings.HasPrefix(lowerCT, "text/") {
		return nil, fmt.Errorf("unsupported content type %q", contentType)
	}
	if !strings.Contains(lowerCT, "text/html") {
		return &Page{URL: finalURL, Markdown: string(body)}, nil
	}
	return parseHTML(finalURL, body)
}

func parseHTML(finalURL string, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	// Remove non-visible elements
	doc.Find("script, style, noscript, iframe, object, embed, img, video, picture, svg, canvas, audio, source, track, map, area, form, label, input, button, select, textarea, progress, ins, applet").Remove()

	page := &Page{
		URL:         finalURL,
		Title:       strings.TrimSpace(doc.Find("head > title").First().Text()),
		Description: strings.TrimSpace(doc.Find("meta[name=description]").AttrOr("content", "")),
	}

	// Navigation chrome would dominate a summary.
	doc.Find("nav, header, footer, aside").Remove()

	plainText := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	htmlStr, err := doc.Html()
	if err != nil {
		return nil, err
	}
	markdown, err := htmltomarkdown.ConvertString(htmlStr)
	if err != nil || strings.TrimSpace(markdown) == "" {
		page.Markdown = plainText
	} else {
		page.Markdown = markdown
	}
	return page, nil
}
