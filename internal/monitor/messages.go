package monitor

import (
	"fmt"
	"strings"
	"time"

	"stockbot/internal/catalog"
	"stockbot/internal/eventbus"
	"stockbot/internal/storage"
)

// ControlsText lists the chat commands. It is broadcast on startup and sent for /help.
const ControlsText = ` ---Welcome to Check_Stock Bot---
1. /start           - to resume all monitoring
2. /stop            - to stop all monitoring
3. /startoutofstock - to resume out of stock monitoring
4. /stopoutofstock  - to stop out of stock monitoring
5. /addme           - to add user to alerts
6. /removeme        - to remove user from alerts
7. /setinterval     - to set custom interval
8. /status          - to show current settings
9. /help            - to show this list
`

const (
	msgPaused          = "⏸️ Monitoring paused by user, waiting for /start ..."
	msgResumed         = "▶️ Monitoring resumed by user"
	msgOutOfStockOff   = "🚫 Out-of-stock alerts disabled"
	msgOutOfStockOn    = "✅ Out-of-stock alerts enabled"
	msgInvalidInterval = "❌ Invalid interval format"
	msgAdded           = "✅ You’ve been added to the alert list"
	msgRemoved         = "👋 A user has been removed from the alert list"
)

const checkTimeLayout = "03:04:05 PM MST on 02-01-2006"

func intervalSetText(n int) string { return fmt.Sprintf("⏱️ Interval set to %ds", n) }

func checkingText(now time.Time) string {
	return "🔍 Product Availability at " + now.Format(checkTimeLayout)
}

// ProductURL builds the store's product page link for a tracked id.
func ProductURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/product/" + id
}

func inStockText(m catalog.Match, url string) string {
	return fmt.Sprintf("✅ In Stock — %s - Quantity: %s - Order here %s", m.Name, m.Available.Quantity(), url)
}

func outOfStockText(m catalog.Match) string {
	return fmt.Sprintf("❌ Out of Stock — %s - Quantity: %s", m.Name, m.Available.Quantity())
}

// StatusText summarizes the runtime configuration for /status and scheduled reports.
func StatusText(st State, tracked []string) string {
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	var b strings.Builder
	b.WriteString("📊 Bot status\n")
	fmt.Fprintf(&b, "- monitoring: %s\n", onOff(st.Monitoring))
	fmt.Fprintf(&b, "- out-of-stock alerts: %s\n", onOff(st.OutOfStockAlerts))
	fmt.Fprintf(&b, "- interval: %ds\n", st.RefreshInterval)
	fmt.Fprintf(&b, "- subscribers: %d\n", len(st.Subscribers))
	fmt.Fprintf(&b, "- tracked products (%d):", len(tracked))
	for _, id := range tracked {
		b.WriteString("\n  • ")
		b.WriteString(id)
	}
	return b.String()
}

// recentAlertsText lists up to limit in-stock alerts from entries, newest first.
func recentAlertsText(entries []storage.Entry, loc *time.Location, limit int) string {
	var lines []string
	for i := len(entries) - 1; i >= 0 && len(lines) < limit; i-- {
		e := entries[i]
		if e.Kind != eventbus.TypeStockIn {
			continue
		}
		lines = append(lines, fmt.Sprintf("  • %s %s (%s)", e.At.In(loc).Format("02 Jan 15:04"), e.Subject, e.Detail))
	}
	if len(lines) == 0 {
		return ""
	}
	return "- last in-stock alerts:\n" + strings.Join(lines, "\n")
}
