package news

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTextLen caps the display text of one record, in runes.
const MaxTextLen = 1500

// Ellipsis marks word-boundary truncation.
const Ellipsis = "…"

// Record is the terminal artifact of the pipeline. It serializes as the
// 3-element array [text, url, date|null] the storage collaborator consumes.
type Record struct {
	Text string
	URL  string
	Date *time.Time
}

func (r Record) MarshalJSON() ([]byte, error) {
	var date interface{}
	if r.Date != nil {
		date = r.Date.Format(time.RFC3339)
	}
	return json.Marshal([3]interface{}{r.Text, r.URL, date})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw [3]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw[0] != nil {
		r.Text = *raw[0]
	}
	if raw[1] != nil {
		r.URL = *raw[1]
	}
	r.Date = nil
	if raw[2] != nil {
		t, err := time.Parse(time.RFC3339, *raw[2])
		if err != nil {
			return err
		}
		r.Date = &t
	}
	return nil
}

// BuildRecords composes the output records for surviving items, in order.
func BuildRecords(items []Item, maxLen int) []Record {
	records := make([]Record, 0, len(items))
	for _, it := range items {
		records = append(records, buildRecord(it, maxLen))
	}
	return records
}

// buildRecord selects the display text by priority: title — summary, bare
// title, extracted text, bare URL. Anything over the cap is truncated at a
// word boundary with an ellipsis marker.
func buildRecord(it Item, maxLen int) Record {
	title := strings.TrimSpace(it.Title)
	summary := strings.TrimSpace(it.Summary)
	fullText := strings.TrimSpace(it.FullText)

	var text string
	switch {
	case title != "" && summary != "":
		text = title + " — " + summary
	case title != "":
		text = title
	case fullText != "":
		text = fullText
	default:
		text = it.Link
	}

	return Record{
		Text: truncateAtWord(text, maxLen),
		URL:  it.Link,
		Date: it.Published,
	}
}

// truncateAtWord cuts text to at most maxLen runes without splitting a word,
// appending the ellipsis when something was cut. When the prefix holds no
// space at all the cut is hard, but the result still fits the cap.
func truncateAtWord(text string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(text) <= maxLen {
		return text
	}

	prefix := string([]rune(text)[:maxLen])
	if idx := strings.LastIndex(prefix, " "); idx > 0 {
		prefix = prefix[:idx]
	} else {
		prefix = string([]rune(prefix)[:maxLen-1])
	}
	return prefix + Ellipsis
}
