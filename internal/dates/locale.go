package dates

import (
	"strings"
	"time"
)

// Polish month vocabulary. Each month accepts the common abbreviation,
// the genitive and nominative full forms, diacritic-free spellings and
// the Roman numeral (I = January).
var monthWords = map[string]time.Month{}

// Polish weekday vocabulary, Monday-first to match how users count days.
var weekdayWords = map[string]int{}

// Filler words that may appear around a date ("na środę", "w piątek",
// "do 15.04", "o 16:00") and carry no date information themselves.
var fillerWords = map[string]bool{
	"na": true, "w": true, "we": true, "do": true, "o": true, "dnia": true,
}

func init() {
	months := [12][]string{
		{"sty", "stycznia", "styczeń", "styczen", "i"},
		{"lut", "lutego", "luty", "ii"},
		{"mar", "marca", "marzec", "iii"},
		{"kwi", "kwietnia", "kwiecień", "kwiecien", "iv"},
		{"maj", "maja", "v"},
		{"cze", "czerwca", "czerwiec", "vi"},
		{"lip", "lipca", "lipiec", "vii"},
		{"sie", "sierpnia", "sierpień", "sierpien", "viii"},
		{"wrz", "września", "wrzesnia", "wrzesień", "wrzesien", "ix"},
		{"paź", "października", "paz", "pazdziernika", "październik", "pazdziernik", "x"},
		{"lis", "listopada", "listopad", "xi"},
		{"gru", "grudnia", "grudzień", "grudzien", "xii"},
	}
	for i, words := range months {
		for _, w := range words {
			monthWords[w] = time.Month(i + 1)
		}
	}

	// 0 = Monday .. 6 = Sunday.
	weekdays := [7][]string{
		{"pn", "poniedziałek", "poniedzialek", "pon", "po"},
		{"wt", "wtorek", "wto"},
		{"śr", "środa", "sr", "sroda", "śro", "sro", "środę", "srode"},
		{"cz", "czwartek", "czw"},
		{"pt", "piątek", "piatek", "pią", "pia", "pi"},
		{"sb", "sobota", "sob", "so", "sobotę", "sobote"},
		{"nd", "niedziela", "nie", "ni", "ndz", "niedzielę", "niedziele"},
	}
	for i, words := range weekdays {
		for _, w := range words {
			weekdayWords[w] = i
		}
	}
}

func lookupMonth(word string) (time.Month, bool) {
	m, ok := monthWords[strings.ToLower(word)]
	return m, ok
}

func lookupWeekday(word string) (int, bool) {
	d, ok := weekdayWords[strings.ToLower(word)]
	return d, ok
}

// mondayIndex maps Go's Sunday-first weekday to the Monday-first index
// used by the vocabulary above.
func mondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
