package validation

// stateRequired is the single declarative rule set for countries whose
// addresses must carry a state or province. Owned here so no endpoint
// re-derives it.
var stateRequired = map[string]bool{
	"US": true,
	"CA": true,
	"AU": true,
	"BR": true,
	"CN": true,
	"IN": true,
}

// RequiresState reports whether addresses in the given ISO-3166 alpha-2
// country must include a state.
func RequiresState(country string) bool {
	return stateRequired[country]
}

// zeroDecimal lists ISO-4217 codes whose minor unit equals the major unit,
// matching the processor's treatment of these currencies.
var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true,
	"jpy": true, "kmf": true, "krw": true, "mga": true,
	"pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// minorUnitExponent returns how many decimal places the currency carries.
func minorUnitExponent(currency string) int {
	if zeroDecimal[currency] {
		return 0
	}
	return 2
}
