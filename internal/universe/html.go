package universe

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{3,6}$`)

// HTMLSource scrapes symbol codes from a web page listing the exchange's
// equities. Each element matched by Selector contributes its text.
type HTMLSource struct {
	URL      string
	Selector string
	Suffix   string
	Client   *http.Client
}

// NewHTMLSource creates a scraper with a default HTTP client.
func NewHTMLSource(url, selector, suffix string) *HTMLSource {
	return &HTMLSource{
		URL:      url,
		Selector: selector,
		Suffix:   suffix,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTMLSource) Symbols(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch universe page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch universe page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse universe page: %w", err)
	}

	var codes []string
	doc.Find(s.Selector).Each(func(_ int, sel *goquery.Selection) {
		code := strings.ToUpper(strings.TrimSpace(sel.Text()))
		if codePattern.MatchString(code) {
			codes = append(codes, code)
		}
	})
	if len(codes) == 0 {
		return nil, fmt.Errorf("no symbol codes matched selector %q", s.Selector)
	}
	return Dedup(codes, s.Suffix), nil
}
