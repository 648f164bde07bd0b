package strategy

// Thresholds are the tunable cut-offs of the decision policy. All comparisons
// are strict.
type Thresholds struct {
	SentimentBuy  float64 `yaml:"sentiment_buy" default:"0.7" validate:"gte=-1,lte=1"`
	SentimentSell float64 `yaml:"sentiment_sell" default:"0.3" validate:"gte=-1,lte=1"`
	SpreadBuyMax  float64 `yaml:"spread_buy_max" default:"0.5" validate:"gte=0"`
	SpreadSellMin float64 `yaml:"spread_sell_min" default:"1" validate:"gte=0"`
	VolumeBuyMin  float64 `yaml:"volume_buy_min" default:"100000" validate:"gte=0"`
	VolumeSellMin float64 `yaml:"volume_sell_min" default:"200000" validate:"gte=0"`
	ImpactMin     float64 `yaml:"impact_min" default:"2" validate:"gte=0"`
}

// DefaultThresholds returns the baseline policy cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SentimentBuy:  0.7,
		SentimentSell: 0.3,
		SpreadBuyMax:  0.5,
		SpreadSellMin: 1,
		VolumeBuyMin:  100_000,
		VolumeSellMin: 200_000,
		ImpactMin:     2,
	}
}
