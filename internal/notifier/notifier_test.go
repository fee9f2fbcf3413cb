package notifier

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"DipScreener/internal/calculator"
	"DipScreener/internal/collector"
	"DipScreener/internal/model"
	"DipScreener/internal/refdata"
	"DipScreener/internal/screener"
)

type fakeBot struct {
	mu       sync.Mutex
	failures int
	sent     []tgbotapi.MessageConfig
	attempts int
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return tgbotapi.Message{}, errors.New("bad gateway")
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestSend_RetriesThenSucceeds(t *testing.T) {
	bot := &fakeBot{failures: 2}
	n := newNotifier(bot, 42, 3, time.Millisecond)

	if err := n.Send(context.Background(), "<b>hello</b>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bot.attempts != 3 || len(bot.sent) != 1 {
		t.Fatalf("expected 3 attempts and 1 delivery, got %d/%d", bot.attempts, len(bot.sent))
	}
	msg := bot.sent[0]
	if msg.ChatID != 42 || msg.ParseMode != tgbotapi.ModeHTML || msg.Text != "<b>hello</b>" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestSend_GivesUp(t *testing.T) {
	bot := &fakeBot{failures: 10}
	n := newNotifier(bot, 42, 2, time.Millisecond)

	err := n.Send(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "after 2 attempts") {
		t.Fatalf("expected exhausted retries, got %v", err)
	}
	if bot.attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", bot.attempts)
	}
}

func TestSend_CancelledDuringBackoff(t *testing.T) {
	bot := &fakeBot{failures: 10}
	n := newNotifier(bot, 42, 3, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := n.Send(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSplit(t *testing.T) {
	if got := split("short", 10); len(got) != 1 || got[0] != "short" {
		t.Fatalf("unexpected %q", got)
	}
	text := "aaaa\nbbbb\ncccc\n"
	parts := split(text, 10)
	if len(parts) != 2 || parts[0] != "aaaa\nbbbb\n" || parts[1] != "cccc\n" {
		t.Fatalf("unexpected parts %q", parts)
	}
	long := strings.Repeat("x", 25)
	parts = split(long, 10)
	if len(parts) != 3 || strings.Join(parts, "") != long {
		t.Fatalf("unexpected parts %q", parts)
	}
	for _, p := range parts {
		if len(p) > 10 {
			t.Errorf("part exceeds limit: %d", len(p))
		}
	}
}

func TestSplit_KeepsRunesAndTags(t *testing.T) {
	turkish := strings.Repeat("ş", 7) // 14 bytes
	parts := split(turkish, 5)
	if strings.Join(parts, "") != turkish {
		t.Fatalf("parts do not rejoin: %q", parts)
	}
	for _, p := range parts {
		if !utf8.ValidString(p) {
			t.Errorf("part %q is not valid UTF-8", p)
		}
		if len(p) > 5 {
			t.Errorf("part exceeds limit: %d", len(p))
		}
	}

	html := "abcdef<b>THYAO</b>"
	parts = split(html, 8)
	if strings.Join(parts, "") != html {
		t.Fatalf("parts do not rejoin: %q", parts)
	}
	if parts[0] != "abcdef" {
		t.Errorf("expected cut before the tag, got %q", parts[0])
	}
	for _, p := range parts {
		if strings.Count(p, "<") != strings.Count(p, ">") {
			t.Errorf("part %q splits a tag", p)
		}
	}
}

func TestDispatch_RepliesToConfiguredChat(t *testing.T) {
	bot := &fakeBot{}
	n := newNotifier(bot, 42, 1, time.Millisecond)
	var got string
	handler := func(_ context.Context, cmd string) string {
		got = cmd
		return "pong"
	}

	update := tgbotapi.Update{Message: &tgbotapi.Message{Text: "  /help ", Chat: &tgbotapi.Chat{ID: 42}}}
	n.dispatch(context.Background(), update, handler)

	if got != "/help" {
		t.Errorf("expected trimmed command, got %q", got)
	}
	if len(bot.sent) != 1 || bot.sent[0].ChatID != 42 || bot.sent[0].Text != "pong" {
		t.Fatalf("unexpected replies %+v", bot.sent)
	}

	n.dispatch(context.Background(), tgbotapi.Update{}, handler)
	n.dispatch(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Text: "x", Chat: &tgbotapi.Chat{ID: 42}}},
		func(context.Context, string) string { return "" })
	if len(bot.sent) != 1 {
		t.Errorf("expected no extra replies, got %d", len(bot.sent))
	}
}

func TestDispatch_IgnoresOtherChats(t *testing.T) {
	bot := &fakeBot{}
	n := newNotifier(bot, 42, 1, time.Millisecond)
	called := false
	handler := func(context.Context, string) string {
		called = true
		return "scan started"
	}

	update := tgbotapi.Update{Message: &tgbotapi.Message{Text: "/scan", Chat: &tgbotapi.Chat{ID: 999}}}
	n.dispatch(context.Background(), update, handler)

	if called {
		t.Error("handler must not run for a foreign chat")
	}
	if len(bot.sent) != 0 {
		t.Errorf("expected no replies, got %+v", bot.sent)
	}
}

func TestFormatScanReport(t *testing.T) {
	refs := refdata.NewStore(map[string]float64{"THYAO": 50.4}, nil)
	rep := &screener.Report{
		StartedAt: time.Date(2024, 5, 2, 18, 30, 0, 0, time.UTC),
		Filters:   "ma(all,+5.0%) and volume(>=1.50x/20d)",
		Results: []model.ScanResult{{
			Symbol: "THYAO.IS", Close: 280.456, ChangePct: -1.234, MA20: 290.1, MA50: 300.2, MA200: math.NaN(),
			VolumeRatio: 1.5, RSI: 28.44, Commentary: "oversold & quiet",
		}},
		Summary: screener.Summary{Requested: 2, Fetched: 2, Matched: 1},
		Breadth: &model.Breadth{Date: "2024-05-02", Advancing: 1, Declining: 1, Ratio: 1.2},
	}
	msg := FormatScanReport(rep, refs)
	for _, want := range []string{"2024-05-02 18:30", "&gt;=1.50x", "<b>THYAO</b> 280.46 ▼1.23%", "MA200 -", "RSI 28.4", "FF 50.4", "Lots N/A", "oversold &amp; quiet", "ratio 1.20"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatScanReport_EmptyAndOutage(t *testing.T) {
	empty := FormatScanReport(&screener.Report{Summary: screener.Summary{Requested: 3, Fetched: 3}}, nil)
	if !strings.Contains(empty, "No symbols matched") {
		t.Errorf("unexpected %s", empty)
	}
	outage := FormatScanReport(&screener.Report{Summary: screener.Summary{Requested: 3, Failed: 3}}, nil)
	if !strings.Contains(outage, "data source may be unavailable") {
		t.Errorf("unexpected %s", outage)
	}
}

func TestFormatSymbolDetail(t *testing.T) {
	bars := collector.GenerateBars(100, 80, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	p := calculator.DefaultParams()
	p.Extras = true
	tbl, err := calculator.BuildTable(model.PriceSeries{Symbol: "ASELS.IS", Bars: bars}, p)
	if err != nil {
		t.Fatal(err)
	}
	msg := FormatSymbolDetail(tbl, nil)
	for _, want := range []string{"<b>ASELS</b>", "MA20:", "RSI:", "MACD:", "Supertrend:", "Free float: N/A", "not investment advice"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatError(t *testing.T) {
	msg := FormatError(errors.New("fetch <THYAO> failed"))
	if !strings.Contains(msg, "fetch &lt;THYAO&gt; failed") {
		t.Errorf("expected escaped error, got %s", msg)
	}
}
