package web

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/leonardcser/summary-mcp/internal/coordinator"
)

// Metadata keys stored in the auxiliary metadata cache.
const (
	MetaTitle       = "title"
	MetaDescription = "description"
	MetaURL         = "url"
)

var ErrNoText = errors.New("page has no summarizable text")

// PageFetcher is implemented by Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// Summarizer produces extractive summaries of web pages. Compute is the
// coordinator's compute function; fetched markdown and page metadata go
// through the store's raw-material and metadata caches.
type Summarizer struct {
	fetcher   PageFetcher
	store     *coordinator.Store
	sentences int
	log       zerolog.Logger
}

func NewSummarizer(fetcher PageFetcher, store *coordinator.Store, sentences int, log zerolog.Logger) *Summarizer {
	if sentences <= 0 {
		sentences = 5
	}
	return &Summarizer{fetcher: fetcher, store: store, sentences: sentences, log: log}
}

// Material returns the page for rawURL, from cache when possible.
func (s *Summarizer) Material(ctx context.Context, rawURL string) (*Page, bool, error) {
	if md, ok := s.store.RawMaterial.Get(rawURL); ok {
		page := &Page{URL: rawURL, Markdown: md}
		if meta, ok := s.store.Metadata.Get(rawURL); ok {
			if u := meta[MetaURL]; u != "" {
				page.URL = u
			}
			page.Title = meta[MetaTitle]
			page.Description = meta[MetaDescription]
		}
		return page, true, nil
	}

	page, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, false, err
	}
	s.store.RawMaterial.Set(rawURL, page.Markdown)
	s.store.Metadata.Set(rawURL, coordinator.Metadata{
		MetaURL:         page.URL,
		MetaTitle:       page.Title,
		MetaDescription: page.Description,
	})
	s.log.Debug().Str("url", rawURL).Int("bytes", len(page.Markdown)).Msg("Fetched raw material")
	return page, false, nil
}

// Compute summarizes the page at resourceKey. label, when set, is used as
// the heading instead of the page title.
func (s *Summarizer) Compute(ctx context.Context, resourceKey, label string) (string, error) {
	page, _, err := s.Material(ctx, resourceKey)
	if err != nil {
		return "", err
	}
	sentences := Extract(page.Markdown, s.sentences)
	if len(sentences) == 0 {
		return "", ErrNoText
	}

	title := strings.TrimSpace(label)
	if title == "" {
		title = page.Title
	}
	var sb strings.Builder
	if title != "" {
		sb.WriteString("# ")
		sb.WriteString(title)
		sb.WriteString("\n\n")
	}
	if page.Description != "" {
		sb.WriteString("> ")
		sb.WriteString(page.Description)
		sb.WriteString("\n\n")
	}
	for _, sentence := range sentences {
		sb.WriteString("- ")
		sb.WriteString(sentence)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
