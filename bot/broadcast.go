package bot

import (
	"context"
	"log/slog"

	"github.com/allmoviespro/moviefinder/telemetry"
)

// sendFunc delivers one message to one chat. Injected so fan-out is testable
// without a live Telegram connection.
type sendFunc func(chatID int64) error

// fanOut delivers to every recipient independently. Per-recipient failures are
// logged and counted; one unreachable chat never aborts the batch. Ordering
// across recipients is not significant.
func fanOut(ctx context.Context, recipients []int64, send sendFunc) (sent, failed int) {
	for _, chatID := range recipients {
		if ctx.Err() != nil {
			slog.Warn("broadcast interrupted", slog.Int("sent", sent), slog.Int("remaining", len(recipients)-sent-failed))
			return sent, failed
		}
		if err := send(chatID); err != nil {
			failed++
			if telemetry.BroadcastsFailed != nil {
				telemetry.BroadcastsFailed.Inc()
			}
			slog.Warn("broadcast send failed", slog.Int64("chat_id", chatID), slog.Any("err", err))
			continue
		}
		sent++
		if telemetry.BroadcastsSent != nil {
			telemetry.BroadcastsSent.Inc()
		}
	}
	return sent, failed
}
