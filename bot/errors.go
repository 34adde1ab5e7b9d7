package bot

import (
	"errors"
	"strings"

	"github.com/allmoviespro/moviefinder/archive"
	"github.com/allmoviespro/moviefinder/tmdb"
)

// Sentinel errors returned by handlers. Everything is converted to a
// user-facing reply at the dispatch boundary; nothing propagates far enough to
// take down the handling of other updates.
var (
	// ErrInvalidArgument covers bad or missing user input. The wrapped text is
	// shown to the user as a usage hint.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPermissionDenied covers non-admins invoking admin commands.
	ErrPermissionDenied = errors.New("not authorized")

	// ErrNotFound covers valid queries with zero results. Rendered as an
	// empty-state message, never as a failure.
	ErrNotFound = errors.New("not found")
)

// userMessage maps a handler error to the text shown to the user.
func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		// Wrapped as "invalid argument: <usage hint>"; only the hint is shown.
		return strings.TrimPrefix(err.Error(), ErrInvalidArgument.Error()+": ")
	case errors.Is(err, ErrPermissionDenied):
		return "Not authorized."
	case errors.Is(err, ErrNotFound):
		return "Koi result nahi mila."
	case errors.Is(err, tmdb.ErrUpstream):
		return "Movie database is not responding right now. Please try again later."
	case errors.Is(err, archive.ErrUpstream):
		return "Internet Archive is not responding right now. Please try again later."
	default:
		return "Something went wrong. Please try again."
	}
}
