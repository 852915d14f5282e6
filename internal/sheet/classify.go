package sheet

import (
	"encoding/json"
	"errors"
)

type Classification struct {
	Kind       Kind       `json:"kind"`
	Resolution Resolution `json:"resolution"`
	Err        error      `json:"-"`
}

// Classify resolves rows against every schema and keeps the one with the
// highest coverage. Earlier schemas win ties. When no schema reaches the
// coverage floor the result is KindUnknown carrying the best partial
// resolution and its *UnresolvedError.
func (r Resolver) Classify(rows [][]string, schemas ...Schema) Classification {
	var best Classification
	bestCoverage := -1.0
	haveResolved := false
	for _, schema := range schemas {
		res, err := r.Resolve(rows, schema)
		resolved := err == nil
		cov := res.Coverage()
		switch {
		case resolved && !haveResolved,
			resolved == haveResolved && cov > bestCoverage:
			best = Classification{Kind: schema.Kind, Resolution: res, Err: err}
			bestCoverage = cov
			haveResolved = resolved
		}
	}
	if !haveResolved {
		best.Kind = KindUnknown
		if best.Err == nil {
			best.Err = &UnresolvedError{Kind: KindUnknown, BestRow: -1, EmptyRows: true}
		}
	}
	return best
}

// PartialCount returns how many columns the best row matched when err is an
// *UnresolvedError.
func PartialCount(err error) (int, bool) {
	var ue *UnresolvedError
	if errors.As(err, &ue) {
		return ue.Resolved, true
	}
	return 0, false
}

func marshalMatches(matches []Match) ([]byte, error) {
	return json.Marshal(matches)
}
