package dispatch

import (
	"fmt"
	"strings"

	"github.com/relaybroker/broker/pkg/reasoner"
)

// truncateReply enforces the ReplyMaxBytes budget, appending a marker so
// the recipient knows the text was cut (§4.5 post-hook).
func truncateReply(text string, maxBytes int) string {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return text
	}
	const marker = "\n[truncated]"
	cut := maxBytes - len(marker)
	if cut < 0 {
		cut = 0
	}
	return text[:cut] + marker
}

// formatBlockedReply renders the user-visible reply for a BLACKLISTED
// short-circuit (§4.4, §8 scenario 6). RED decisions use
// formatApprovalReply instead.
func formatBlockedReply(reason, matchedPattern string) string {
	var b strings.Builder
	b.WriteString("Blocked: ")
	b.WriteString(reason)
	if matchedPattern != "" {
		b.WriteString(" (matched pattern: ")
		b.WriteString(matchedPattern)
		b.WriteString(")")
	}
	return b.String()
}

// formatBusyReply renders the user-visible reply when an item is rejected
// by queue backpressure (§4.5, §8 boundary: "no third outcome").
func formatBusyReply() string {
	return "Busy: too many pending tasks for this conversation right now, try again shortly."
}

// formatApprovalReply renders the user-visible reply for a RED decision,
// carrying the reasoner's structured out-of-band marker so the transport
// surfaces it as an approval prompt rather than a flat block (§4.4, §6,
// §8 scenario 2).
func formatApprovalReply(reason, matchedPattern string) string {
	var b strings.Builder
	b.WriteString(reasoner.ApprovalMarkerPrefix)
	b.WriteString(" ")
	b.WriteString(reason)
	if matchedPattern != "" {
		b.WriteString(" (matched pattern: ")
		b.WriteString(matchedPattern)
		b.WriteString(")")
	}
	return b.String()
}

// formatRetryingReply renders the transient progress reply sent before
// each bounded automatic retry (§7).
func formatRetryingReply(outputErr string, attempt, bound int) string {
	return fmt.Sprintf("Task failed: %s\n\nA similar failure has a known solution; retrying automatically (attempt %d/%d).", outputErr, attempt, bound)
}

// formatFailureReply renders the user-visible reply for a failed
// execution. When the final analysis is still retry-eligible (the Outcome
// Analyzer found a remembered solution), it notes that the solution is on
// record and that automatic retries were exhausted (§4.6, §7).
func formatFailureReply(outputErr string, retryEligible bool) string {
	var b strings.Builder
	b.WriteString("Task failed: ")
	b.WriteString(outputErr)
	if retryEligible {
		b.WriteString("\n\nA similar failure has a known solution on record; automatic retries were exhausted.")
	}
	return b.String()
}
