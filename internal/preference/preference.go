// Package preference holds a visitor's display preferences (language and
// currency) and cookie consent. State lives in a Session that is opened per
// request from an injected Storage and written through on every change.
package preference

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/language"

	"github.com/rainbowtourguides/backend/internal/domain"
)

// Language is a supported UI language.
type Language string

const (
	English    Language = "en"
	Spanish    Language = "es"
	French     Language = "fr"
	German     Language = "de"
	Portuguese Language = "pt"
)

// DefaultLanguage is used when detection finds no supported match.
const DefaultLanguage = English

// Languages lists the supported languages in matcher priority order.
func Languages() []Language {
	return []Language{English, Spanish, French, German, Portuguese}
}

// ParseLanguage validates s against the supported set.
func ParseLanguage(s string) (Language, error) {
	for _, l := range Languages() {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported language %q", domain.ErrValidation, s)
}

var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
	language.Portuguese,
})

// DetectLanguage picks the best supported language for an Accept-Language
// header value, or DefaultLanguage when nothing matches.
func DetectLanguage(acceptLanguage string) Language {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return DefaultLanguage
	}
	return Languages()[idx]
}

// Currency is a supported display currency.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	CAD Currency = "CAD"
)

// DefaultCurrency is the currency of every guide rate.
const DefaultCurrency = USD

// Currencies lists the supported display currencies.
func Currencies() []Currency {
	return []Currency{USD, EUR, GBP, CAD}
}

// ParseCurrency validates s against the supported set.
func ParseCurrency(s string) (Currency, error) {
	for _, c := range Currencies() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported currency %q", domain.ErrValidation, s)
}

// usdRates are illustrative display rates, not market rates. Prices are
// always computed and charged in USD.
var usdRates = map[Currency]float64{
	USD: 1,
	EUR: 0.92,
	GBP: 0.79,
	CAD: 1.36,
}

var symbols = map[Currency]string{
	USD: "$",
	EUR: "€",
	GBP: "£",
	CAD: "CA$",
}

// Convert converts a USD amount into c using the static rate table.
func Convert(amountUSD float64, c Currency) float64 {
	rate, ok := usdRates[c]
	if !ok {
		rate = 1
	}
	return amountUSD * rate
}

// ToUSD converts an amount quoted in c back to USD. Unknown currencies are
// treated as USD.
func ToUSD(amount float64, c Currency) float64 {
	rate, ok := usdRates[c]
	if !ok {
		rate = 1
	}
	return amount / rate
}

// FormatPrice converts a USD amount into c, rounds to a whole unit and
// prefixes the currency symbol: FormatPrice(100, EUR) == "€92".
func FormatPrice(amountUSD float64, c Currency) string {
	sym, ok := symbols[c]
	if !ok {
		sym = symbols[USD]
	}
	return sym + strconv.FormatFloat(math.Round(Convert(amountUSD, c)), 'f', 0, 64)
}

// Preferences is a visitor's display settings.
type Preferences struct {
	Language Language `json:"language"`
	Currency Currency `json:"currency"`
}
