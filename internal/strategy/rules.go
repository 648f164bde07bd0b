package strategy

import (
	"fmt"

	"github.com/sidvijay2004/trading-agent/internal/model"
)

// buySignal reports whether sentiment strength and liquidity line up for an entry.
func buySignal(score, impact float64, snap *model.MarketSnapshot, t Thresholds) bool {
	return score > t.SentimentBuy &&
		snap.Spread() < t.SpreadBuyMax &&
		snap.Volume > t.VolumeBuyMin &&
		impact > t.ImpactMin
}

// sellSignal ignores holdings; the caller gates on owned quantity.
func sellSignal(score, impact float64, snap *model.MarketSnapshot, t Thresholds) bool {
	return score < t.SentimentSell &&
		snap.Spread() > t.SpreadSellMin &&
		snap.Volume > t.VolumeSellMin &&
		impact > t.ImpactMin
}

func describe(score, impact float64, snap *model.MarketSnapshot) string {
	return fmt.Sprintf("sentiment=%.3f impact=%.2f spread=%.4f volume=%.0f",
		score, impact, snap.Spread(), snap.Volume)
}
