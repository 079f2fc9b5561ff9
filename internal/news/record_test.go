package news

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"ainews/internal/rss"
)

func TestBuildRecord_TitleAndSummary(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	it := Item{Entry: rss.Entry{
		Title:     "AI breakthrough",
		Summary:   "New model released",
		Link:      "http://x.test/1",
		Published: &date,
	}}

	r := buildRecord(it, MaxTextLen)
	if r.Text != "AI breakthrough — New model released" {
		t.Errorf("unexpected text: %q", r.Text)
	}
	if r.URL != "http://x.test/1" {
		t.Errorf("url changed: %q", r.URL)
	}
	if r.Date == nil || !r.Date.Equal(date) {
		t.Errorf("date changed: %v", r.Date)
	}
}

func TestBuildRecord_TitleOnly(t *testing.T) {
	it := Item{Entry: rss.Entry{Title: "AI breakthrough", Link: "http://x.test/1"}}
	r := buildRecord(it, MaxTextLen)
	if r.Text != "AI breakthrough" {
		t.Errorf("expected bare title, got %q", r.Text)
	}
	if r.Date != nil {
		t.Errorf("expected nil date, got %v", r.Date)
	}
}

func TestBuildRecord_FallbackToFullTextThenURL(t *testing.T) {
	it := Item{
		Entry:    rss.Entry{Link: "http://x.test/1"},
		FullText: "extracted body text",
	}
	if r := buildRecord(it, MaxTextLen); r.Text != "extracted body text" {
		t.Errorf("expected full text, got %q", r.Text)
	}

	bare := Item{Entry: rss.Entry{Link: "http://x.test/1"}}
	if r := buildRecord(bare, MaxTextLen); r.Text != "http://x.test/1" {
		t.Errorf("expected url fallback, got %q", r.Text)
	}
}

func TestTruncateAtWord(t *testing.T) {
	out := truncateAtWord("aaaa bbbb cccc dddd eeee", 20)
	if !strings.HasSuffix(out, Ellipsis) {
		t.Errorf("expected ellipsis suffix, got %q", out)
	}
	if utf8.RuneCountInString(out) > 20 {
		t.Errorf("output exceeds cap: %d runes", utf8.RuneCountInString(out))
	}
	if out != "aaaa bbbb cccc dddd"+Ellipsis {
		t.Errorf("word split at truncation boundary: %q", out)
	}
}

func TestTruncateAtWord_NoSpaces(t *testing.T) {
	out := truncateAtWord(strings.Repeat("x", 30), 10)
	if utf8.RuneCountInString(out) != 10 {
		t.Errorf("expected exactly 10 runes, got %d (%q)", utf8.RuneCountInString(out), out)
	}
	if !strings.HasSuffix(out, Ellipsis) {
		t.Errorf("expected ellipsis suffix, got %q", out)
	}
}

func TestTruncateAtWord_ShortTextUntouched(t *testing.T) {
	if out := truncateAtWord("short", 1500); out != "short" {
		t.Errorf("short text modified: %q", out)
	}
}

func TestRecordJSON_Triplet(t *testing.T) {
	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	data, err := json.Marshal(Record{Text: "hello", URL: "http://x.test/1", Date: &date})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `["hello","http://x.test/1","2024-01-01T00:00:00Z"]`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}

	data, err = json.Marshal(Record{Text: "hello", URL: "http://x.test/1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["hello","http://x.test/1",null]` {
		t.Errorf("nil date should serialize as null, got %s", data)
	}

	var back Record
	if err := json.Unmarshal([]byte(want), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Text != "hello" || back.Date == nil || !back.Date.Equal(date) {
		t.Errorf("round trip mismatch: %+v", back)
	}
}
