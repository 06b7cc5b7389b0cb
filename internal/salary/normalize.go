// Package salary reduces a job offer's pay range to one PLN amount.
package salary

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/citymap/internal/model"
)

// Canonical is the currency every normalized amount is expressed in.
const Canonical = "PLN"

// ErrUnsupportedCurrency is returned by Rate for codes outside the table.
var ErrUnsupportedCurrency = eris.New("unsupported currency")

// rates are fixed conversion rates to PLN, keyed by lower-case ISO code.
var rates = map[string]float64{
	"pln": 1.0,
	"usd": 4.03,
	"eur": 4.2,
}

// Rate returns the PLN conversion rate for a currency code. Unknown codes
// return 1.0 together with ErrUnsupportedCurrency.
func Rate(currency string) (float64, error) {
	code := strings.ToLower(strings.TrimSpace(currency))
	if r, ok := rates[code]; ok {
		return r, nil
	}
	return 1.0, eris.Wrapf(ErrUnsupportedCurrency, "salary: %q", currency)
}

// Normalized is the single comparable salary derived from one job offer.
type Normalized struct {
	From           float64 `json:"from"`
	To             float64 `json:"to"`
	Currency       string  `json:"currency"`        // as found in the offer
	EmploymentType string  `json:"employment_type"` // type of the consulted entry
	Representative float64 `json:"avg_salary"`      // pre-conversion value
	Amount         float64 `json:"normalized_salary"`
	// Converted is false when the currency was unknown and passed through at
	// rate 1.0.
	Converted bool `json:"converted"`
}

// Representative reduces a pay range to one value as to - from/2.
//
// NOTE: this is not the midpoint (from+to)/2. It is the formula the salary
// maps were originally published with and likely began as an operator
// precedence slip; it is kept so bucket boundaries stay comparable with
// those maps.
func Representative(from, to float64) float64 {
	return to - from/2
}

// Normalize derives the PLN salary from the first employment entry of an
// offer. It reports false when that entry has no complete salary range; the
// offer must then be left out of salary analysis, never counted as zero.
// Later entries are ignored.
func Normalize(o model.JobOffer) (Normalized, bool) {
	if len(o.EmploymentTypes) == 0 {
		return Normalized{}, false
	}
	first := o.EmploymentTypes[0]
	if first.Salary == nil || first.Salary.From == nil || first.Salary.To == nil {
		return Normalized{}, false
	}

	from, to := *first.Salary.From, *first.Salary.To
	if math.IsNaN(from) || math.IsNaN(to) || math.IsInf(from, 0) || math.IsInf(to, 0) {
		return Normalized{}, false
	}

	rep := Representative(from, to)
	rate, err := Rate(first.Salary.Currency)
	converted := err == nil
	if !converted {
		zap.L().Warn("salary: currency passed through unconverted",
			zap.String("offer", o.ID),
			zap.String("currency", first.Salary.Currency),
			zap.Error(err),
		)
	}

	return Normalized{
		From:           from,
		To:             to,
		Currency:       first.Salary.Currency,
		EmploymentType: first.Type,
		Representative: rep,
		Amount:         math.RoundToEven(rep * rate),
		Converted:      converted,
	}, true
}

// Describe names why an offer has no salary, for exclusion logs.
func Describe(o model.JobOffer) string {
	switch {
	case len(o.EmploymentTypes) == 0:
		return "no employment types"
	case o.EmploymentTypes[0].Salary == nil:
		return "first employment type has no salary"
	case o.EmploymentTypes[0].Salary.From == nil || o.EmploymentTypes[0].Salary.To == nil:
		return "salary range is incomplete"
	default:
		return "salary range is not finite"
	}
}
