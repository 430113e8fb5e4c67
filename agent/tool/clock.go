package tool

import (
	"time"

	contractx "github.com/naruemon-s/glowdesk/agent/contract"
)

const ToolClockNow = "clock.now"

// ClockOutput is the reference "now" agents use to resolve relative
// date/time phrases.
type ClockOutput struct {
	Date     string `json:"date"`     // YYYY-MM-DD
	Time     string `json:"time"`     // HH:MM, 24-hour
	DateTime string `json:"datetime"` // RFC 3339
}

// Clock produces the current time; injectable for tests.
type Clock func() time.Time

func Now(clock Clock) contractx.ToolResult {
	if clock == nil {
		clock = time.Now
	}
	now := clock()
	return contractx.ToolResult{
		Tool: ToolClockNow,
		Result: ClockOutput{
			Date:     now.Format("2006-01-02"),
			Time:     now.Format("15:04"),
			DateTime: now.Format(time.RFC3339),
		},
	}
}
