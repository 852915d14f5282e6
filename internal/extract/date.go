package extract

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Date decodes a spreadsheet date serial. Whole serials map to midnight UTC;
// a fractional part carries the time of day.
func Date(raw string, date1904 bool) Parsed[time.Time] {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Parsed[time.Time]{Raw: raw}
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(serial) || math.IsInf(serial, 0) || serial <= 0 {
		return unparsed[time.Time](raw)
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return unparsed[time.Time](raw)
	}
	if serial == math.Trunc(serial) {
		t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return ok(raw, t.UTC())
}

// Decimal parses a numeric cell, tolerating thousands separators.
func Decimal(raw string) Parsed[decimal.Decimal] {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Parsed[decimal.Decimal]{Raw: raw}
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return unparsed[decimal.Decimal](raw)
	}
	return ok(raw, d)
}
