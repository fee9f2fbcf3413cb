package universe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{" thyao ", "THYAO.IS"},
		{"GARAN.IS", "GARAN.IS"},
		{"xu100.is", "XU100.IS"},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in, ".IS"); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBaseCode(t *testing.T) {
	if got := BaseCode("akbnk.is"); got != "AKBNK" {
		t.Errorf("expected AKBNK, got %s", got)
	}
	if got := BaseCode("SISE"); got != "SISE" {
		t.Errorf("expected SISE, got %s", got)
	}
}

func TestStaticSource_MergesAndDedups(t *testing.T) {
	src := NewStaticSource(".IS", "akbnk", "ASTOR", "")
	symbols, err := src.Symbols(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(symbols) != len(bistCodes)+1 {
		t.Fatalf("expected %d symbols, got %d", len(bistCodes)+1, len(symbols))
	}
	if symbols[0] != "AKBNK.IS" {
		t.Errorf("expected first symbol AKBNK.IS, got %s", symbols[0])
	}
	if symbols[len(symbols)-1] != "ASTOR.IS" {
		t.Errorf("expected extra symbol last, got %s", symbols[len(symbols)-1])
	}
}

type countingSource struct {
	calls int
	err   error
}

func (c *countingSource) Symbols(context.Context) ([]string, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []string{"A.IS", "B.IS"}, nil
}

func TestCached_RespectsTTL(t *testing.T) {
	src := &countingSource{}
	c := NewCached(src, time.Hour)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if _, err := c.Symbols(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected 1 underlying call, got %d", src.calls)
	}

	now = now.Add(2 * time.Hour)
	if _, err := c.Symbols(context.Background()); err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Fatalf("expected refresh after TTL, got %d calls", src.calls)
	}
}

func TestCached_ServesStaleOnError(t *testing.T) {
	src := &countingSource{}
	c := NewCached(src, time.Minute)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if _, err := c.Symbols(context.Background()); err != nil {
		t.Fatal(err)
	}
	src.err = errors.New("down")
	now = now.Add(time.Hour)
	got, err := c.Symbols(context.Background())
	if err != nil {
		t.Fatalf("expected stale list, got error %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 stale symbols, got %v", got)
	}
}

func TestHTMLSource_ScrapesCodes(t *testing.T) {
	page := `<html><body><table>
<tr><th>Kod</th><th>Ad</th></tr>
<tr><td>THYAO</td><td>Turk Hava Yollari</td></tr>
<tr><td> garan </td><td>Garanti</td></tr>
<tr><td>THYAO</td><td>duplicate</td></tr>
<tr><td>not a code</td><td>x</td></tr>
</table></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer srv.Close()

	src := NewHTMLSource(srv.URL, "table td:first-child", ".IS")
	symbols, err := src.Symbols(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "THYAO.IS" || symbols[1] != "GARAN.IS" {
		t.Errorf("unexpected symbols %v", symbols)
	}
}

func TestHTMLSource_NoMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>empty</p></body></html>"))
	}))
	defer srv.Close()

	src := NewHTMLSource(srv.URL, "table td", ".IS")
	if _, err := src.Symbols(context.Background()); err == nil {
		t.Fatal("expected error when selector matches nothing")
	}
}
