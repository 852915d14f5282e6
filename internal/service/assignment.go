package service

import (
	"regexp"
	"strings"

	"github.com/rtr-ops/backend/internal/models"
)

// QuadrantMatcher is one tier of the quadrant resolution cascade.
type QuadrantMatcher interface {
	Name() string
	Match(name string, quadrants []models.Quadrant) (models.Quadrant, bool)
}

// ExactMatch compares trimmed names byte for byte.
type ExactMatch struct{}

// NumericNormalizedMatch compares the numeric token of the name with the
// numeric tokens of each quadrant, ignoring leading zeros ("Q3" = "Quadrant 03").
type NumericNormalizedMatch struct{}

// PatternMatch is the last resort: any quadrant whose name contains the
// number, optionally zero padded, anywhere in it.
type PatternMatch struct{}

var DefaultQuadrantMatchers = []QuadrantMatcher{ExactMatch{}, NumericNormalizedMatch{}, PatternMatch{}}

var numericToken = regexp.MustCompile(`\d+`)

func (ExactMatch) Name() string { return "exact" }

func (ExactMatch) Match(name string, quadrants []models.Quadrant) (models.Quadrant, bool) {
	target := strings.TrimSpace(name)
	for _, q := range quadrants {
		if strings.TrimSpace(q.Name) == target {
			return q, true
		}
	}
	return models.Quadrant{}, false
}

func (NumericNormalizedMatch) Name() string { return "numeric" }

func (NumericNormalizedMatch) Match(name string, quadrants []models.Quadrant) (models.Quadrant, bool) {
	n, ok := firstNumber(name)
	if !ok {
		return models.Quadrant{}, false
	}
	for _, q := range quadrants {
		for _, tok := range numericToken.FindAllString(q.Name, -1) {
			if trimZeros(tok) == n {
				return q, true
			}
		}
	}
	return models.Quadrant{}, false
}

func (PatternMatch) Name() string { return "pattern" }

func (PatternMatch) Match(name string, quadrants []models.Quadrant) (models.Quadrant, bool) {
	n, ok := firstNumber(name)
	if !ok {
		return models.Quadrant{}, false
	}
	for _, q := range quadrants {
		if strings.Contains(q.Name, n) {
			return q, true
		}
	}
	return models.Quadrant{}, false
}

// MatchQuadrant runs the matchers in order and returns the first hit together
// with the name of the tier that found it. A blank name or no hit returns
// nil; tickets may have no quadrant.
func MatchQuadrant(name string, quadrants []models.Quadrant, matchers ...QuadrantMatcher) (*models.Quadrant, string) {
	if strings.TrimSpace(name) == "" || len(quadrants) == 0 {
		return nil, ""
	}
	if len(matchers) == 0 {
		matchers = DefaultQuadrantMatchers
	}
	for _, m := range matchers {
		if q, ok := m.Match(name, quadrants); ok {
			return &q, m.Name()
		}
	}
	return nil, ""
}

func firstNumber(s string) (string, bool) {
	tok := numericToken.FindString(s)
	if tok == "" {
		return "", false
	}
	return trimZeros(tok), true
}

func trimZeros(tok string) string {
	t := strings.TrimLeft(tok, "0")
	if t == "" {
		return "0"
	}
	return t
}
