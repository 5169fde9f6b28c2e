// internal/pipeline/metrics/ratios.go
package metrics

import (
	"math"

	"finsight/internal/models"
)

// applyDerivedRatios fills in sharpe and calmar from normalized
// components when the provider did not expose them directly. The
// components need not share a window. A missing component yields an
// unavailable ratio, never zero.
func applyDerivedRatios(set *models.MetricSet, defaultRiskFree float64) {
	cagr := set.Get(models.MetricCAGR)
	risk := set.Get(models.MetricRisk)
	drawdown := set.Get(models.MetricMaxDrawdown)

	riskFree := defaultRiskFree
	if rf := set.Get(models.MetricRiskFreeRate); rf.Available {
		riskFree = rf.Value
	} else {
		set.Set(models.MetricRiskFreeRate, models.Scalar(riskFree))
	}

	if !set.Get(models.MetricSharpe).Available {
		if cagr.Available && risk.Available && risk.Value != 0 {
			set.Set(models.MetricSharpe, models.Scalar((cagr.Value-riskFree)/risk.Value))
		} else {
			set.Set(models.MetricSharpe, models.Unavailable())
		}
	}

	if !set.Get(models.MetricCalmar).Available {
		if cagr.Available && drawdown.Available && drawdown.Value != 0 {
			set.Set(models.MetricCalmar, models.Scalar(cagr.Value/math.Abs(drawdown.Value)))
		} else {
			set.Set(models.MetricCalmar, models.Unavailable())
		}
	}
}
