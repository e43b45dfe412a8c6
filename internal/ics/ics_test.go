package ics

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"evcount/internal/i18n"
	"evcount/internal/model"
	"evcount/internal/store"
)

func calendar(lines ...string) []byte {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return []byte(strings.Join(all, "\r\n"))
}

var feed = calendar(
	"BEGIN:VEVENT",
	"UID:weekly@test",
	"DTSTAMP:20250101T000000Z",
	"DTSTART:20250106T100000Z",
	"DTEND:20250106T110000Z",
	"RRULE:FREQ=WEEKLY;COUNT=4",
	"EXDATE:20250113T100000Z",
	"SUMMARY:Standup",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:weekly@test",
	"DTSTAMP:20250101T000000Z",
	"RECURRENCE-ID:20250120T100000Z",
	"DTSTART:20250121T100000Z",
	"DTEND:20250121T110000Z",
	"SUMMARY:Standup moved",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:party@test",
	"DTSTAMP:20250101T000000Z",
	"DTSTART;VALUE=DATE:20250214",
	"DTEND;VALUE=DATE:20250215",
	"SUMMARY:Party",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"DTSTART;VALUE=DATE:20250301",
	"SUMMARY:No uid",
	"END:VEVENT",
)

func TestParse(t *testing.T) {
	evs, err := Parse(Source{ID: "test"}, feed)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(evs) != 3 {
		t.Fatalf("expected 3 events (one skipped), got %d", len(evs))
	}
	if evs[0].RawRRule != "FREQ=WEEKLY;COUNT=4" || len(evs[0].ExDates) != 1 {
		t.Errorf("unexpected recurrence data %+v", evs[0])
	}
	if !evs[1].IsOverride() {
		t.Error("expected second VEVENT to be an override")
	}
	if !evs[2].AllDay || evs[2].Summary != "Party" {
		t.Errorf("expected all-day Party, got %+v", evs[2])
	}

	if _, err := Parse(Source{}, []byte("  ")); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestExpand(t *testing.T) {
	parsed, err := Parse(Source{ID: "test"}, feed)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	res, err := Expand(parsed, ExpandConfig{
		Location: time.UTC,
		From:     model.MustDate("2025-01-01"),
		To:       model.MustDate("2025-02-28"),
	})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	want := []Occurrence{
		{SourceID: "test", UID: "weekly@test", Summary: "Standup", Date: model.MustDate("2025-01-06"), Time: "10:00"},
		{SourceID: "test", UID: "weekly@test", Summary: "Standup moved", Date: model.MustDate("2025-01-21"), Time: "10:00"},
		{SourceID: "test", UID: "weekly@test", Summary: "Standup", Date: model.MustDate("2025-01-27"), Time: "10:00"},
		{SourceID: "test", UID: "party@test", Summary: "Party", Date: model.MustDate("2025-02-14")},
	}
	if len(res.Occurrences) != len(want) {
		t.Fatalf("expected %d occurrences, got %+v", len(want), res.Occurrences)
	}
	for i := range want {
		if res.Occurrences[i] != want[i] {
			t.Errorf("occurrence %d: expected %+v, got %+v", i, want[i], res.Occurrences[i])
		}
	}
}

func TestExpandCapAndRange(t *testing.T) {
	daily := ParsedEvent{
		UID:      "daily",
		Summary:  "Daily",
		Start:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		AllDay:   true,
		RawRRule: "FREQ=DAILY",
	}
	res, err := Expand([]ParsedEvent{daily}, ExpandConfig{
		From:                   model.MustDate("2025-01-01"),
		To:                     model.MustDate("2025-12-31"),
		MaxOccurrencesPerEvent: 10,
	})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(res.Occurrences) != 10 || len(res.Truncated) != 1 {
		t.Errorf("expected capped expansion, got %d occurrences, truncated %v", len(res.Occurrences), res.Truncated)
	}

	if _, err := Expand(nil, ExpandConfig{From: model.MustDate("2025-02-01"), To: model.MustDate("2025-01-01")}); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestToEvents(t *testing.T) {
	evs := ToEvents([]Occurrence{
		{Summary: "Standup", Date: model.MustDate("2025-01-06"), Time: "10:00"},
		{Summary: "", Date: model.MustDate("2025-01-07")},
	}, "Meeting")
	if len(evs) != 1 {
		t.Fatalf("expected untitled occurrence dropped, got %+v", evs)
	}
	ev := evs[0]
	if ev.Category != "Meeting" || ev.Icon != model.DefaultIconFor("Meeting") || ev.Reminder != model.ReminderNone || ev.Time != "10:00" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestTriggerOffset(t *testing.T) {
	for _, tc := range []struct {
		lead, hour int
		want       string
	}{
		{0, 9, "PT9H"},
		{1, 9, "-PT15H"},
		{2, 9, "-P1DT15H"},
		{7, 9, "-P6DT15H"},
		{1, 0, "-P1D"},
		{0, 0, "PT0S"},
	} {
		if got := triggerOffset(tc.lead, tc.hour); got != tc.want {
			t.Errorf("triggerOffset(%d, %d): expected %s, got %s", tc.lead, tc.hour, tc.want, got)
		}
	}
}

func TestExportRoundTrip(t *testing.T) {
	evs := []model.Event{
		{ID: "a", Name: "Trip", Date: model.MustDate("2025-07-01"), Category: "Travel", Icon: model.IconPlane, Reminder: model.ReminderWeekBefore},
		{ID: "b", Name: "Lunch", Date: model.MustDate("2025-07-03"), Time: "12:30", Category: "General", Icon: model.IconCalendar, Reminder: model.ReminderNone},
	}
	var buf bytes.Buffer
	err := Export(&buf, evs, ExportOptions{Hour: 9, Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Phrases: i18n.For("en")})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"SUMMARY:Trip", "DTSTART;VALUE=DATE:20250701", "TRIGGER:-P6DT15H", "ACTION:DISPLAY", "UID:a@evcount"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in export:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "BEGIN:VALARM"); n != 1 {
		t.Errorf("expected one alarm, got %d", n)
	}

	parsed, err := Parse(Source{ID: "self"}, buf.Bytes())
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}
	res, err := Expand(parsed, ExpandConfig{From: model.MustDate("2025-06-01"), To: model.MustDate("2025-07-31")})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(res.Occurrences) != 2 || res.Occurrences[0].Date != evs[0].Date || res.Occurrences[1].Date != evs[1].Date {
		t.Errorf("expected exported dates back, got %+v", res.Occurrences)
	}
}

func TestFetcherConditionalCache(t *testing.T) {
	var hits, notModified atomic.Int32
	fail := atomic.Bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if fail.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(feed)
	}))
	defer srv.Close()

	f := NewFetcher(store.NewMemoryStore(), srv.Client())
	src := Source{ID: "feed", URL: srv.URL + "/private.ics?token=secret"}
	ctx := context.Background()

	first, err := f.FetchOne(ctx, src)
	if err != nil || first.FromCache || !bytes.Equal(first.Body, feed) {
		t.Fatalf("expected fresh body, got cache=%v err=%v", first.FromCache, err)
	}
	second, err := f.FetchOne(ctx, src)
	if err != nil || !second.FromCache || !bytes.Equal(second.Body, feed) {
		t.Fatalf("expected cached body on 304, got cache=%v err=%v", second.FromCache, err)
	}
	if notModified.Load() != 1 {
		t.Errorf("expected one conditional hit, got %d", notModified.Load())
	}

	fail.Store(true)
	third, err := f.FetchOne(ctx, src)
	if err != nil || !third.FromCache {
		t.Errorf("expected cached fallback on server error, got cache=%v err=%v", third.FromCache, err)
	}

	fresh := NewFetcher(store.NewMemoryStore(), srv.Client())
	if _, err := fresh.FetchOne(ctx, src); err == nil {
		t.Error("expected error without a cached body")
	}
}

func TestCollect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(feed)
	}))
	defer srv.Close()

	f := NewFetcher(store.NewMemoryStore(), srv.Client())
	evs, err := Collect(context.Background(), f, []Source{{ID: "ok", URL: srv.URL}, {ID: "empty"}}, ExpandConfig{
		Location: time.UTC,
		From:     model.MustDate("2025-01-01"),
		To:       model.MustDate("2025-02-28"),
	}, "Meeting")
	if err == nil {
		t.Error("expected error for the source without URL")
	}
	if len(evs) != 4 {
		t.Errorf("expected 4 events from the good feed, got %d", len(evs))
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://cal.example.com/private/abc.ics?token=x"); got != "https://cal.example.com/...(redacted)" {
		t.Errorf("unexpected redaction %s", got)
	}
	if got := redactURL("not a url"); got != "ics://...(redacted)" {
		t.Errorf("unexpected redaction %s", got)
	}
}
