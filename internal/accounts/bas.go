package accounts

// BAS chart accounts the engine reads directly, outside any rule table.
const (
	PensionPremiums   = 7410 // Pensionsförsäkringspremier
	PensionPayrollTax = 7531 // Särskild löneskatt för pensionskostnader
	IncomeTax         = 8910 // Skatt som belastar årets resultat
)

// Names gives display names for the accounts above.
var Names = map[int]string{
	PensionPremiums:   "Pensionsförsäkringspremier",
	PensionPayrollTax: "Särskild löneskatt för pensionskostnader",
	IncomeTax:         "Skatt som belastar årets resultat",
}
