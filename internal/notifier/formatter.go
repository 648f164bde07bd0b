package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/sidvijay2004/trading-agent/internal/engine"
	"github.com/sidvijay2004/trading-agent/internal/model"
)

var actionIcon = map[model.Action]string{
	model.ActionBuy:  "🟢",
	model.ActionSell: "🔴",
	model.ActionHold: "⚪",
}

// FormatCycleReport formats one trading cycle into a Telegram message.
// Holds are counted but not listed.
func FormatCycleReport(rep *engine.CycleReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Trading cycle</b> | %s\n", rep.StartedAt.UTC().Format("2006-01-02 15:04 MST")))
	b.WriteString(fmt.Sprintf("<code>%s</code>\n\n", html.EscapeString(rep.CycleID)))

	holds := 0
	for _, o := range rep.Outcomes {
		d := o.Decision
		if d.Action == model.ActionHold {
			holds++
			continue
		}
		b.WriteString(fmt.Sprintf("%s <b>%s</b> %s", actionIcon[d.Action], html.EscapeString(d.Ticker), strings.ToUpper(string(d.Action))))
		if d.SentimentScore != nil && d.ExpectedImpact != nil {
			b.WriteString(fmt.Sprintf(" (sentiment %+.2f, impact %.2f)", *d.SentimentScore, *d.ExpectedImpact))
		}
		b.WriteString("\n")
		switch {
		case o.Execution != nil:
			ex := o.Execution
			line := fmt.Sprintf("   order %s: %d @ ", html.EscapeString(ex.OrderID), ex.Quantity)
			if ex.FilledAvgPrice != nil {
				line += ex.FilledAvgPrice.StringFixed(2)
			} else {
				line += "market"
			}
			b.WriteString(line + " [" + html.EscapeString(ex.Status) + "]\n")
		case o.Note != "":
			b.WriteString("   ⚠️ " + html.EscapeString(o.Note) + "\n")
		}
	}

	b.WriteString(fmt.Sprintf("\nEvaluated: %d | Held: %d | Orders: %d", len(rep.Outcomes), holds, rep.Orders))
	if rep.Failures > 0 {
		b.WriteString(fmt.Sprintf(" | Failures: %d", rep.Failures))
	}
	return b.String()
}

// FormatLedger formats the paper ledger for display.
func FormatLedger(state model.LedgerState) string {
	var b strings.Builder
	b.WriteString("📦 <b>Paper ledger</b>\n\n")
	b.WriteString(fmt.Sprintf("Cash: $%.2f (start $%.2f)\n", state.Cash, state.StartingCash))
	b.WriteString(fmt.Sprintf("Realized P&amp;L: $%+.2f\n", state.RealizedPnL))
	b.WriteString(fmt.Sprintf("Orders filled: %d\n", state.Orders))
	if len(state.Positions) > 0 {
		b.WriteString("\nPositions:\n")
		for _, sym := range sortedKeys(state.Positions) {
			lot := state.Positions[sym]
			b.WriteString(fmt.Sprintf("  %s: %d @ %.2f\n", sym, lot.Qty, lot.AvgCost))
		}
	}
	if !state.UpdatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("\nUpdated: %s\n", state.UpdatedAt.UTC().Format("2006-01-02 15:04")))
	}
	return b.String()
}

func sortedKeys(m map[string]model.LotState) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
