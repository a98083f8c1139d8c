package phone

// Country identifies an entry in the dial-code table by ISO 3166-1 alpha-2
// code.
type Country struct {
	ID       string
	Name     string
	DialCode string // E.164 country calling code, digits only
}

// countries is the static country selection table offered by the phone form.
var countries = map[string]Country{
	"AE": {ID: "AE", Name: "United Arab Emirates", DialCode: "971"},
	"AU": {ID: "AU", Name: "Australia", DialCode: "61"},
	"BD": {ID: "BD", Name: "Bangladesh", DialCode: "880"},
	"CA": {ID: "CA", Name: "Canada", DialCode: "1"},
	"DE": {ID: "DE", Name: "Germany", DialCode: "49"},
	"FR": {ID: "FR", Name: "France", DialCode: "33"},
	"GB": {ID: "GB", Name: "United Kingdom", DialCode: "44"},
	"IN": {ID: "IN", Name: "India", DialCode: "91"},
	"LK": {ID: "LK", Name: "Sri Lanka", DialCode: "94"},
	"MY": {ID: "MY", Name: "Malaysia", DialCode: "60"},
	"NP": {ID: "NP", Name: "Nepal", DialCode: "977"},
	"NZ": {ID: "NZ", Name: "New Zealand", DialCode: "64"},
	"SG": {ID: "SG", Name: "Singapore", DialCode: "65"},
	"US": {ID: "US", Name: "United States", DialCode: "1"},
	"ZA": {ID: "ZA", Name: "South Africa", DialCode: "27"},
}

// Countries returns the supported country table keyed by ISO code.
func Countries() map[string]Country {
	out := make(map[string]Country, len(countries))
	for k, v := range countries {
		out[k] = v
	}
	return out
}
