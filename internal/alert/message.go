package alert

import (
	"strings"

	"github.com/safecircle/server/internal/model"
)

// ComposeMessage builds the SMS body sent to every nominee. location is the
// already resolved location line content and is omitted when empty.
func ComposeMessage(account model.Account, ev model.EmergencyEvent, location string) string {
	details := strings.TrimSpace(ev.Details)
	if details == "" {
		details = "N/A"
	}

	var b strings.Builder
	b.WriteString("ALERT from " + account.DisplayName() + "\n")
	b.WriteString("Type: " + ev.Category + "\n")
	b.WriteString("Details: " + details)
	if location != "" {
		b.WriteString("\n" + location)
	}
	if ev.Location != nil {
		b.WriteString("\nMaps: " + MapsLink(*ev.Location))
	}
	return b.String()
}
