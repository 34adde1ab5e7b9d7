package bot

import (
	"fmt"
	"html"
	"strings"
	"unicode"

	"github.com/PaulSonOfLars/gotgbot/v2"

	"github.com/allmoviespro/moviefinder/archive"
	"github.com/allmoviespro/moviefinder/tmdb"
)

const (
	// Telegram caps photo captions at 1024 UTF-16 code units; plain messages at 4096.
	maxCaptionLen = 1024

	// Labels longer than this get cut on selection buttons.
	maxButtonLabel = 60
)

func splash(brand, tagline, region string) string {
	return fmt.Sprintf(
		"<b>%s</b>\n<i>%s</i>\n\n"+
			"Yeh bot aapko movies/series ki <b>legal</b> information deta hai:\n"+
			"• Search + details + poster\n"+
			"• %s me kaha stream ho rahi hai (legal providers)\n"+
			"• Public-domain/CC licensed videos ke legal download links (Internet Archive)\n"+
			"• Similar recommendations\n"+
			"• Aaj ke trending (TMDB)\n\n"+
			"Use: /search <movie ya series ka naam>\n"+
			"Try: /trending",
		html.EscapeString(brand), html.EscapeString(tagline), html.EscapeString(region))
}

func helpText() string {
	return "Search ke liye: /search <query> — Example: /search Charlie Chaplin\nTrending: /trending"
}

func titleWithYear(title, year string) string {
	if year != "" {
		return fmt.Sprintf("%s (%s)", title, year)
	}
	return title
}

// searchKeyboard renders one pick button per result.
func searchKeyboard(results []tmdb.Result) [][]gotgbot.InlineKeyboardButton {
	rows := make([][]gotgbot.InlineKeyboardButton, 0, len(results))
	for _, r := range results {
		label := truncate(titleWithYear(r.Title, r.Year), maxButtonLabel)
		data := Callback{Action: ActionPick, Media: r.Type, ID: r.ID}.Encode()
		rows = append(rows, []gotgbot.InlineKeyboardButton{{Text: label, CallbackData: data}})
	}
	return rows
}

// detailText builds the HTML caption for a title detail card.
func detailText(d tmdb.Details) string {
	overview := d.Overview
	if overview == "" {
		overview = "No overview available."
	}
	text := fmt.Sprintf("<b>%s</b> (%s)\n\n%s",
		html.EscapeString(d.Title), html.EscapeString(d.Year), html.EscapeString(overview))
	return truncate(text, maxCaptionLen)
}

// detailButtons binds the named actions to the selected title. The downloads
// button only appears when an archive item with a rights declaration exists.
func detailButtons(d tmdb.Details, region string, hasArchive bool) [][]gotgbot.InlineKeyboardButton {
	rows := [][]gotgbot.InlineKeyboardButton{
		{{Text: fmt.Sprintf("Where to Watch (%s)", region), CallbackData: Callback{Action: ActionProviders, Media: d.Type, ID: d.ID}.Encode()}},
		{{Text: "Trailer", CallbackData: Callback{Action: ActionTrailer, Media: d.Type, ID: d.ID}.Encode()}},
	}
	if hasArchive {
		rows = append(rows, []gotgbot.InlineKeyboardButton{{Text: "Public-Domain Downloads", CallbackData: Callback{Action: ActionDownloads, Media: d.Type, ID: d.ID, Title: d.Title}.Encode()}})
	}
	rows = append(rows, []gotgbot.InlineKeyboardButton{{Text: "Recommendations", CallbackData: Callback{Action: ActionRecommend, Media: d.Type, ID: d.ID}.Encode()}})
	return rows
}

func trendingText(movies, tv []tmdb.Result) string {
	var b strings.Builder
	b.WriteString("<b>Trending Now</b>\n\n<b>Movies:</b>\n")
	b.WriteString(resultLines(movies))
	b.WriteString("\n\n<b>TV:</b>\n")
	b.WriteString(resultLines(tv))
	return b.String()
}

func similarText(results []tmdb.Result) string {
	return "<b>Similar titles:</b>\n" + resultLines(results)
}

func resultLines(results []tmdb.Result) string {
	if len(results) == 0 {
		return "—"
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, "• "+html.EscapeString(titleWithYear(r.Title, r.Year)))
	}
	return strings.Join(lines, "\n")
}

func providersText(p tmdb.Providers, region string) string {
	kind := func(names []string) string {
		if len(names) == 0 {
			return "—"
		}
		return html.EscapeString(strings.Join(names, ", "))
	}
	return fmt.Sprintf("<b>Where to Watch (%s)</b>\nStreaming: %s\nRent: %s\nBuy: %s\n\nNote: Availability can change. Check in your apps.",
		html.EscapeString(region), kind(p.Flatrate), kind(p.Rent), kind(p.Buy))
}

func archiveText(items []archive.Item) string {
	chunks := make([]string, 0, len(items))
	for _, it := range items {
		title := it.Title
		if title == "" {
			title = "Untitled"
		}
		head := fmt.Sprintf("<b>%s</b> (%s)", html.EscapeString(title), html.EscapeString(it.Year))
		chunk := head + "\nLicense: " + html.EscapeString(it.LicenseURL) + "\n" + strings.Join(it.Links, "\n")
		chunks = append(chunks, chunk)
	}
	return strings.Join(chunks, "\n\n") + "\n\nOnly share/use content permitted by the license."
}

// truncate cuts s to at most n UTF-16 code units, the unit Telegram uses for
// caption and message limits. The cut never leaves a broken HTML entity
// behind; an ellipsis marks the cut.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	total := 0
	cut := -1
	for i, r := range s {
		w := 1
		if r > 0xFFFF {
			w = 2
		}
		if cut < 0 && total+w > n-1 {
			cut = i
		}
		total += w
	}
	if total <= n {
		return s
	}
	head := s[:cut]
	if amp := splitEntityStart(head); amp >= 0 {
		head = head[:amp]
	}
	return head + "…"
}

// splitEntityStart returns the index of a trailing unterminated HTML entity
// ("&amp" cut before its ";"), or -1. Escaped entities are short, so a long
// or non-entity tail after the last "&" (e.g. a plain "& Jerry") is left alone.
func splitEntityStart(head string) int {
	amp := strings.LastIndexByte(head, '&')
	if amp < 0 || len(head)-amp > 9 {
		return -1
	}
	for _, r := range head[amp+1:] {
		if r != '#' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return -1
		}
	}
	return amp
}
