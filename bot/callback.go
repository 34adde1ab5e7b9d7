package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/allmoviespro/moviefinder/tmdb"
)

// Action tags the button a user pressed. Callback data round-trips through
// Telegram as an opaque string; Callback is the decoded variant every button
// press dispatches on.
type Action string

const (
	ActionPick      Action = "pick"
	ActionProviders Action = "prov"
	ActionTrailer   Action = "trailer"
	ActionDownloads Action = "pd"
	ActionRecommend Action = "rec"
)

// maxCallbackData is Telegram's hard limit on callback_data bytes.
const maxCallbackData = 64

// Callback is the decoded form of inline button callback data.
// Title is only carried for ActionDownloads, where the archive lookup needs
// the display title rather than the TMDB id.
type Callback struct {
	Action Action
	Media  tmdb.MediaType
	ID     int64
	Title  string
}

// Encode renders pipe-separated callback data within Telegram's 64-byte limit.
// Pipes inside the title are replaced and the title is truncated to fit.
func (c Callback) Encode() string {
	head := fmt.Sprintf("%s|%s|%d", c.Action, c.Media, c.ID)
	if c.Action != ActionDownloads {
		return head
	}
	title := strings.ReplaceAll(c.Title, "|", " ")
	budget := maxCallbackData - len(head) - 1
	if budget < 0 {
		budget = 0
	}
	for len(title) > budget {
		_, size := decodeLastRune(title)
		title = title[:len(title)-size]
	}
	return head + "|" + title
}

func decodeLastRune(s string) (rune, int) {
	for i := len(s) - 1; i >= 0; i-- {
		if (s[i] & 0xC0) != 0x80 { // not a UTF-8 continuation byte
			r := []rune(s[i:])
			return r[0], len(s) - i
		}
	}
	return 0, len(s)
}

// ParseCallback decodes button callback data back into the tagged variant.
func ParseCallback(data string) (Callback, error) {
	parts := strings.Split(data, "|")
	if len(parts) < 3 {
		return Callback{}, fmt.Errorf("malformed callback data %q", data)
	}
	action := Action(parts[0])
	switch action {
	case ActionPick, ActionProviders, ActionTrailer, ActionDownloads, ActionRecommend:
	default:
		return Callback{}, fmt.Errorf("unknown callback action %q", parts[0])
	}
	media := tmdb.MediaType(parts[1])
	if !media.Valid() {
		return Callback{}, fmt.Errorf("invalid media type in callback %q", data)
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Callback{}, fmt.Errorf("invalid id in callback %q: %w", data, err)
	}
	cb := Callback{Action: action, Media: media, ID: id}
	if action == ActionDownloads && len(parts) > 3 {
		cb.Title = strings.Join(parts[3:], "|")
	}
	return cb, nil
}
