package extract

import (
	"regexp"
	"strconv"
)

type Dimensions struct {
	Length int `json:"length"`
	Width  int `json:"width"`
}

var dimensionPattern = regexp.MustCompile(`(\d+)\s*[xX*×]\s*(\d+)`)

// ParseDimensions takes the first "<int> x <int>" pair found anywhere in the text.
func ParseDimensions(raw string) Parsed[Dimensions] {
	if blank(raw) {
		return Parsed[Dimensions]{Raw: raw}
	}
	m := dimensionPattern.FindStringSubmatch(raw)
	if m == nil {
		return unparsed[Dimensions](raw)
	}
	length, err := strconv.Atoi(m[1])
	if err != nil {
		return unparsed[Dimensions](raw)
	}
	width, err := strconv.Atoi(m[2])
	if err != nil {
		return unparsed[Dimensions](raw)
	}
	return ok(raw, Dimensions{Length: length, Width: width})
}
