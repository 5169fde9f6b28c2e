// internal/pipeline/resolver/aliases.go
package resolver

// aliasTable maps well-known instrument names to qualified identifiers.
// Checked after session hints and before any directory scan, so these
// resolve exactly even when the directory lists near-identical names.
var aliasTable = map[string]string{
	// US equities
	"apple":     "AAPL.US",
	"microsoft": "MSFT.US",
	"google":    "GOOGL.US",
	"alphabet":  "GOOGL.US",
	"amazon":    "AMZN.US",
	"tesla":     "TSLA.US",
	"nvidia":    "NVDA.US",
	"meta":      "META.US",
	"netflix":   "NFLX.US",

	// MOEX equities
	"sber":     "SBER.MOEX",
	"sberbank": "SBER.MOEX",
	"gazprom":  "GAZP.MOEX",
	"lukoil":   "LKOH.MOEX",
	"yandex":   "YDEX.MOEX",
	"norilsk":  "GMKN.MOEX",

	// Commodities
	"gold":   "XAU.COMM",
	"silver": "XAG.COMM",
	"brent":  "BRENT.COMM",
	"oil":    "BRENT.COMM",

	// Indexes
	"sp500":   "GSPC.INDX",
	"s&p500":  "GSPC.INDX",
	"s&p 500": "GSPC.INDX",
	"nasdaq":  "IXIC.INDX",
	"dow":     "DJI.INDX",
	"moex index": "IMOEX.INDX",

	// FX pairs
	"eurusd": "EURUSD.FX",
	"usdrub": "USDRUB.FX",
	"gbpusd": "GBPUSD.FX",
}

// lookupAlias returns the qualified identifier for a normalized mention.
func lookupAlias(normalized string) (string, bool) {
	id, ok := aliasTable[normalized]
	return id, ok
}
