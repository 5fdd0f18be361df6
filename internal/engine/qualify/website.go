package qualify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/rendis/leadsweep/internal/engine/transport"
)

// maxProbeBytes bounds how much of a page is read.
const maxProbeBytes = 2 << 20

// freeGenerators are matched against the page's generator meta tag.
var freeGenerators = []string{"wix.com", "weebly", "godaddy", "site123", "jimdo", "webnode", "blogger"}

// PageInfo is what the website rule needs to know about a page.
type PageInfo struct {
	StatusCode int
	Size       int
	Generator  string
}

// Prober fetches a page. Any returned error counts as an unreachable site.
type Prober interface {
	Probe(ctx context.Context, url string) (PageInfo, error)
}

// HTTPProber fetches pages over HTTP.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber builds a prober; the caller's context bounds each fetch.
func NewHTTPProber(fp transport.Fingerprint) *HTTPProber {
	return &HTTPProber{client: transport.NewClient(transport.Config{Fingerprint: fp, MaxRedirects: 5})}
}

func (p *HTTPProber) Probe(ctx context.Context, url string) (PageInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return PageInfo{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", transport.UserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return PageInfo{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBytes))
	if err != nil {
		return PageInfo{}, fmt.Errorf("reading body: %w", err)
	}

	info := PageInfo{StatusCode: resp.StatusCode, Size: len(body)}
	if strings.Contains(resp.Header.Get("Content-Type"), "html") || bytes.Contains(body, []byte("<html")) {
		info.Generator = generator(body)
	}
	return info, nil
}

func generator(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var content string
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if name, _ := s.Attr("name"); strings.EqualFold(name, "generator") {
			content, _ = s.Attr("content")
			return false
		}
		return true
	})
	return strings.TrimSpace(content)
}
