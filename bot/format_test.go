package bot

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/allmoviespro/moviefinder/archive"
	"github.com/allmoviespro/moviefinder/tmdb"
)

func TestSplashEscapesBranding(t *testing.T) {
	got := splash("Brand <&>", "Tag <i>", "IN")
	if strings.Contains(got, "<&>") {
		t.Errorf("brand not escaped: %q", got)
	}
	if !strings.Contains(got, "/search") || !strings.Contains(got, "/trending") {
		t.Errorf("splash missing usage hints")
	}
}

func TestDetailText(t *testing.T) {
	d := tmdb.Details{Title: "Tom & Jerry", Year: "1940", Overview: "Cat <chases> mouse."}
	got := detailText(d)
	if !strings.Contains(got, "Tom &amp; Jerry") {
		t.Errorf("title not escaped: %q", got)
	}
	if !strings.Contains(got, "&lt;chases&gt;") {
		t.Errorf("overview not escaped: %q", got)
	}
}

func TestDetailTextTruncates(t *testing.T) {
	d := tmdb.Details{Title: "X", Year: "2000", Overview: strings.Repeat("a", 5000)}
	got := detailText(d)
	if utf8.RuneCountInString(got) > maxCaptionLen {
		t.Errorf("detail text is %d runes, cap %d", utf8.RuneCountInString(got), maxCaptionLen)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis on truncated text")
	}
}

func TestDetailTextNeverSplitsEntities(t *testing.T) {
	// Sweep the escaped entities across the caption cut; a cut inside one
	// would leave a tail like "&amp…" that Telegram's HTML parser rejects.
	for pad := 990; pad <= 1030; pad++ {
		d := tmdb.Details{Title: "X", Year: "2000", Overview: strings.Repeat("a", pad) + "&<>" + strings.Repeat("b", 100)}
		got := detailText(d)
		body := strings.TrimSuffix(got, "…")
		if amp := strings.LastIndexByte(body, '&'); amp >= 0 && !strings.Contains(body[amp:], ";") {
			t.Fatalf("pad=%d: broken entity at end of caption: %q", pad, body[amp:])
		}
	}
}

func TestTruncateCountsUTF16Units(t *testing.T) {
	got := truncate(strings.Repeat("🎬", 600), maxCaptionLen)
	units := 0
	for _, r := range got {
		units++
		if r > 0xFFFF {
			units++
		}
	}
	if units > maxCaptionLen {
		t.Errorf("truncated text is %d UTF-16 units, cap %d", units, maxCaptionLen)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis on truncated text")
	}
}

func TestDetailTextEmptyOverview(t *testing.T) {
	got := detailText(tmdb.Details{Title: "X", Year: "2000"})
	if !strings.Contains(got, "No overview available.") {
		t.Errorf("expected placeholder overview, got %q", got)
	}
}

func TestDetailButtons(t *testing.T) {
	d := tmdb.Details{ID: 603, Type: tmdb.MediaMovie, Title: "The Matrix"}
	rows := detailButtons(d, "IN", true)
	if len(rows) != 4 {
		t.Fatalf("got %d button rows, want 4", len(rows))
	}
	labels := make([]string, 0, 4)
	for _, row := range rows {
		labels = append(labels, row[0].Text)
		if _, err := ParseCallback(row[0].CallbackData); err != nil {
			t.Errorf("button %q has invalid callback data %q: %v", row[0].Text, row[0].CallbackData, err)
		}
	}
	joined := strings.Join(labels, ";")
	for _, want := range []string{"Where to Watch (IN)", "Trailer", "Public-Domain Downloads", "Recommendations"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing button %q in %v", want, labels)
		}
	}
}

func TestDetailButtonsWithoutArchive(t *testing.T) {
	d := tmdb.Details{ID: 603, Type: tmdb.MediaMovie, Title: "The Matrix"}
	rows := detailButtons(d, "IN", false)
	if len(rows) != 3 {
		t.Fatalf("got %d button rows, want 3 without archive item", len(rows))
	}
	for _, row := range rows {
		if row[0].Text == "Public-Domain Downloads" {
			t.Errorf("downloads button present despite no archive item")
		}
	}
}

func TestSearchKeyboard(t *testing.T) {
	results := []tmdb.Result{
		{ID: 1, Type: tmdb.MediaMovie, Title: strings.Repeat("Long", 40), Year: "1999"},
		{ID: 2, Type: tmdb.MediaTV, Title: "Show"},
	}
	rows := searchKeyboard(results)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if utf8.RuneCountInString(rows[0][0].Text) > maxButtonLabel {
		t.Errorf("label not truncated: %q", rows[0][0].Text)
	}
	cb, err := ParseCallback(rows[1][0].CallbackData)
	if err != nil || cb.Action != ActionPick || cb.ID != 2 || cb.Media != tmdb.MediaTV {
		t.Errorf("bad pick callback: %+v err=%v", cb, err)
	}
}

func TestTrendingText(t *testing.T) {
	movies := []tmdb.Result{{Title: "M1", Year: "2024"}, {Title: "M2", Year: "2023"}}
	tv := []tmdb.Result{{Title: "S1", Year: "2022"}}
	got := trendingText(movies, tv)
	for _, want := range []string{"Trending Now", "M1 (2024)", "M2 (2023)", "S1 (2022)"} {
		if !strings.Contains(got, want) {
			t.Errorf("trending text missing %q:\n%s", want, got)
		}
	}
}

func TestTrendingTextEmpty(t *testing.T) {
	got := trendingText(nil, nil)
	if strings.Count(got, "—") != 2 {
		t.Errorf("expected em-dash placeholders for both empty lists:\n%s", got)
	}
}

func TestProvidersText(t *testing.T) {
	p := tmdb.Providers{Flatrate: []string{"StreamCo"}, Rent: []string{"RentFlix", "OtherRent"}}
	got := providersText(p, "IN")
	for _, want := range []string{"Where to Watch (IN)", "Streaming: StreamCo", "Rent: RentFlix, OtherRent", "Buy: —"} {
		if !strings.Contains(got, want) {
			t.Errorf("providers text missing %q:\n%s", want, got)
		}
	}
}

func TestArchiveText(t *testing.T) {
	items := []archive.Item{
		{
			Identifier: "nosferatu1922",
			Title:      "Nosferatu",
			Year:       "1922",
			LicenseURL: "https://creativecommons.org/publicdomain/mark/1.0/",
			Links:      []string{"https://archive.org/download/nosferatu1922/a.mp4"},
		},
	}
	got := archiveText(items)
	for _, want := range []string{"Nosferatu", "License:", "a.mp4", "permitted by the license"} {
		if !strings.Contains(got, want) {
			t.Errorf("archive text missing %q:\n%s", want, got)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("truncate short = %q", got)
	}
	got := truncate("hello world", 5)
	if utf8.RuneCountInString(got) != 5 || !strings.HasSuffix(got, "…") {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("héllo wörld", 6); utf8.RuneCountInString(got) != 6 {
		t.Errorf("multibyte truncate = %q", got)
	}
	// A plain ampersand is not an entity and must not be over-trimmed.
	if got := truncate("Tom & Jerry: The Movie", 12); !strings.Contains(got, "&") {
		t.Errorf("plain ampersand over-trimmed: %q", got)
	}
}
