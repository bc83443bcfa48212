package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"YieldOptimizer/internal/model"
)

// FormatAlarm formats a failed reallocation for operators.
func FormatAlarm(evt *model.ReallocationFailedData) string {
	var b strings.Builder
	if evt.Stranded() {
		b.WriteString("🚨 <b>Funds stranded</b>\n\n")
	} else {
		b.WriteString("⚠️ <b>Reallocation failed</b>\n\n")
	}
	b.WriteString(fmt.Sprintf("Owner: <code>%s</code>\n", html.EscapeString(evt.Owner)))
	b.WriteString(fmt.Sprintf("Stage: %s\n", evt.Stage))
	b.WriteString(fmt.Sprintf("Route: %s → %s\n", evt.FromProtocol, evt.ToProtocol))
	b.WriteString(fmt.Sprintf("Asset: %s\n", html.EscapeString(evt.AssetMint)))
	b.WriteString(fmt.Sprintf("Amount: %d\n", evt.Amount))
	b.WriteString(fmt.Sprintf("Error: %s\n", html.EscapeString(evt.Error)))
	b.WriteString(fmt.Sprintf("Time: %s\n", time.Unix(evt.Timestamp, 0).UTC().Format("2006-01-02 15:04:05")))
	if evt.Stranded() {
		b.WriteString("\nWithdrawn funds did not reach the destination. Reconcile manually; the attempt will not be retried.\n")
	}
	return b.String()
}

// FormatLedger formats one owner's ledger.
func FormatLedger(l *model.FundLedger, cooldown time.Duration) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>Ledger</b> <code>%s</code>\n\n", html.EscapeString(l.Owner)))
	b.WriteString(fmt.Sprintf("Protocol: %s\n", l.CurrentProtocol))
	b.WriteString(fmt.Sprintf("Last reallocation: %s\n", time.Unix(l.LastReallocation, 0).UTC().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Next eligible: %s\n", l.NextEligible(cooldown).UTC().Format("2006-01-02 15:04")))
	assets := l.Assets()
	if len(assets) == 0 {
		b.WriteString("Balances: none\n")
		return b.String()
	}
	b.WriteString("Balances:\n")
	for _, a := range assets {
		b.WriteString(fmt.Sprintf("  %s: %d\n", html.EscapeString(a), l.Balance(a)))
	}
	return b.String()
}

// FormatGovernance formats the fee configuration.
func FormatGovernance(g *model.GovernanceRecord) string {
	return fmt.Sprintf("🏛 <b>Governance</b>\n\nAuthority: <code>%s</code>\nFee rate: %d bps (%.2f%%)\n",
		html.EscapeString(g.Authority), g.FeeRate, float64(g.FeeRate)/100)
}

// FormatSweep summarizes one scheduled sweep.
func FormatSweep(moved, skipped, failed int) string {
	return fmt.Sprintf("🔁 <b>Sweep</b> | %s\n\nMoved: %d\nSkipped: %d\nFailed: %d\n",
		time.Now().UTC().Format("2006-01-02 15:04"), moved, skipped, failed)
}

// FormatHelp lists the supported operator commands.
func FormatHelp() string {
	return "<b>Commands</b>\n" +
		"/ledger &lt;owner&gt; - show a ledger\n" +
		"/fee - show the fee rate\n" +
		"/sweep - run the reallocation sweep now\n" +
		"/help - this message\n"
}
