package service

import (
	"testing"

	"github.com/rtr-ops/backend/internal/models"
)

func TestMatchQuadrant(t *testing.T) {
	quadrants := []models.Quadrant{
		{ID: 1, Name: "3"},
		{ID: 2, Name: "Quadrant 3"},
		{ID: 3, Name: "NW"},
		{ID: 4, Name: "Zone12B"},
		{ID: 5, Name: "Q-007"},
	}
	tests := []struct {
		in     string
		wantID int64
		tier   string
	}{
		{" Quadrant 3 ", 2, "exact"},
		{"NW", 3, "exact"},
		{"quadrant 3", 1, "numeric"},
		{"nw", 0, ""},
		{"Q03", 1, "numeric"},
		{"Sector 7", 5, "numeric"},
		{"2", 4, "pattern"},
		{"NE", 0, ""},
		{"", 0, ""},
		{"Zone 99", 0, ""},
	}
	for _, tc := range tests {
		q, tier := MatchQuadrant(tc.in, quadrants)
		if tc.wantID == 0 {
			if q != nil {
				t.Fatalf("%q: expected no quadrant, got %+v", tc.in, q)
			}
			continue
		}
		if q == nil || q.ID != tc.wantID {
			t.Fatalf("%q: expected quadrant %d, got %+v", tc.in, tc.wantID, q)
		}
		if tier != tc.tier {
			t.Fatalf("%q: expected tier %s, got %s", tc.in, tc.tier, tier)
		}
	}
}

func TestMatchQuadrantCustomOrder(t *testing.T) {
	quadrants := []models.Quadrant{{ID: 1, Name: "Area 04"}, {ID: 2, Name: "4"}}
	q, tier := MatchQuadrant("4", quadrants, NumericNormalizedMatch{}, ExactMatch{})
	if q == nil || q.ID != 1 || tier != "numeric" {
		t.Fatalf("expected numeric tier to win when listed first, got %+v %s", q, tier)
	}
}

func TestMatchQuadrantNoQuadrants(t *testing.T) {
	if q, _ := MatchQuadrant("NW", nil); q != nil {
		t.Fatalf("expected nil, got %+v", q)
	}
}

func TestPatternMatch(t *testing.T) {
	quadrants := []models.Quadrant{{ID: 1, Name: "Zone 150"}, {ID: 2, Name: "Zone 0005"}}
	tests := []struct {
		in     string
		wantID int64
	}{
		{"Sector 5", 1},
		{"Sector 005", 1},
		{"Sector 00", 1},
		{"Sector 9", 0},
		{"Sector", 0},
	}
	for _, tc := range tests {
		q, ok := PatternMatch{}.Match(tc.in, quadrants)
		if tc.wantID == 0 {
			if ok {
				t.Fatalf("%q: expected no match, got %+v", tc.in, q)
			}
			continue
		}
		if !ok || q.ID != tc.wantID {
			t.Fatalf("%q: expected quadrant %d, got %+v (ok=%v)", tc.in, tc.wantID, q, ok)
		}
	}
}
