// Package extract turns raw spreadsheet cells into typed values. Every
// function is pure and never fails: input that cannot be parsed comes back
// as an Unparsed result carrying the raw text.
package extract

import "strings"

type State int

const (
	// Absent means the cell was blank.
	Absent State = iota
	Ok
	// Unparsed means the cell had text that did not fit the expected shape.
	Unparsed
)

func (s State) String() string {
	switch s {
	case Ok:
		return "ok"
	case Unparsed:
		return "unparsed"
	default:
		return "absent"
	}
}

type Parsed[T any] struct {
	Value T
	Raw   string
	State State
}

func (p Parsed[T]) Ok() bool {
	return p.State == Ok
}

// Ptr returns the value only when it was parsed.
func (p Parsed[T]) Ptr() *T {
	if p.State != Ok {
		return nil
	}
	v := p.Value
	return &v
}

func ok[T any](raw string, v T) Parsed[T] {
	return Parsed[T]{Value: v, Raw: raw, State: Ok}
}

func unparsed[T any](raw string) Parsed[T] {
	return Parsed[T]{Raw: raw, State: Unparsed}
}

func blank(raw string) bool {
	return strings.TrimSpace(raw) == ""
}

// Text trims a cell and returns nil for blank cells.
func Text(raw string) *string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	return &v
}
