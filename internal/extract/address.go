package extract

import (
	"regexp"
	"strings"
)

type Address struct {
	Number   string `json:"number,omitempty"`
	Cardinal string `json:"cardinal,omitempty"`
	Street   string `json:"street,omitempty"`
	Suffix   string `json:"suffix,omitempty"`
}

// Components returns the four parts with empty parts as nil.
func (a Address) Components() (number, cardinal, street, suffix *string) {
	return nilIfEmpty(a.Number), nilIfEmpty(a.Cardinal), nilIfEmpty(a.Street), nilIfEmpty(a.Suffix)
}

var streetSuffixes = []string{
	"STREET", "ST", "AVENUE", "AVE", "AV", "BOULEVARD", "BLVD", "ROAD", "RD", "DRIVE", "DR",
	"PLACE", "PL", "COURT", "CT", "LANE", "LN", "WAY", "PARKWAY", "PKWY", "TERRACE", "TER",
	"CIRCLE", "CIR", "HIGHWAY", "HWY", "SQUARE", "SQ", "PLAZA", "PLZ", "ALLEY", "ALY",
	"CRESCENT", "CRES", "EXPRESSWAY", "EXPY", "FREEWAY", "FWY", "TRAIL", "TRL", "BRIDGE", "BRG",
}

const cardinals = `N|S|E|W|NE|NW|SE|SW`

var (
	leadingRange = regexp.MustCompile(`^(\d+)\s*-\s*\d+\b`)
	addressRe    = regexp.MustCompile(`^(\d+)\s+(?:(` + cardinals + `)\s+)?(.+?)(?:\s+(` + strings.Join(streetSuffixes, "|") + `))?$`)
	rangeRe      = regexp.MustCompile(`^(\d+(?:\s*-\s*\d+)?)\s+(?:(` + cardinals + `)\s+)?(.+?)(?:\s+(` + strings.Join(streetSuffixes, "|") + `))?$`)
	spaces       = regexp.MustCompile(`\s+`)
)

// ParseAddress decomposes "<number> [cardinal] <street words> [suffix]".
// A leading "100-120" range is reduced to its first number. Text that does
// not fit comes back Unparsed with the whole input as the street.
func ParseAddress(raw string) Parsed[Address] {
	if blank(raw) {
		return Parsed[Address]{Raw: raw}
	}
	s := leadingRange.ReplaceAllString(normalizeAddress(raw), "$1")
	return matchAddress(addressRe, raw, s)
}

// ParseRangeAddress accepts the same grammar but keeps a hyphenated number
// range, as used for corridor start and end streets.
func ParseRangeAddress(raw string) Parsed[Address] {
	if blank(raw) {
		return Parsed[Address]{Raw: raw}
	}
	return matchAddress(rangeRe, raw, normalizeAddress(raw))
}

func matchAddress(re *regexp.Regexp, raw, s string) Parsed[Address] {
	m := re.FindStringSubmatch(s)
	if m == nil || strings.TrimSpace(m[3]) == "" {
		p := unparsed[Address](raw)
		p.Value = Address{Street: strings.TrimSpace(raw)}
		return p
	}
	return ok(raw, Address{
		Number:   strings.ReplaceAll(m[1], " ", ""),
		Cardinal: m[2],
		Street:   strings.TrimSpace(m[3]),
		Suffix:   m[4],
	})
}

func normalizeAddress(raw string) string {
	s := strings.ToUpper(raw)
	s = strings.NewReplacer(",", " ", ".", " ", "#", " ").Replace(s)
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
