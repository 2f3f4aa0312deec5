package coercer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"learnerdash/domain/markbook"
)

// excelEpoch is day zero of the 1900 date system as Excel counts it
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts are tried in order by ParseDate
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01-02-06",
	"02-Jan-2006",
	"2 January 2006",
	"January 2, 2006",
}

// Classify turns a raw cell string into a typed markbook cell
func Classify(raw string) markbook.Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return markbook.EmptyCell()
	}
	if v, ok := ParseNumber(s); ok {
		return markbook.Cell{Kind: markbook.CellNumber, Number: v, Text: s}
	}
	return markbook.TextCell(s)
}

// ParseNumber parses a mark with strict rules. Handles parentheses for
// negatives, decimal commas, thousands separators and a trailing percent sign.
func ParseNumber(strVal string) (float64, bool) {
	cleanVal := strings.TrimSpace(strVal)
	if cleanVal == "" {
		return 0, false
	}

	// (123) -> -123
	isNegative := false
	if strings.HasPrefix(cleanVal, "(") && strings.HasSuffix(cleanVal, ")") {
		cleanVal = strings.TrimSuffix(strings.TrimPrefix(cleanVal, "("), ")")
		isNegative = true
	}

	cleanVal = strings.TrimSpace(strings.TrimSuffix(cleanVal, "%"))

	hasComma := strings.Contains(cleanVal, ",")
	hasPeriod := strings.Contains(cleanVal, ".")
	hasSpace := strings.Contains(cleanVal, " ")

	switch {
	case hasComma && (hasPeriod || hasSpace):
		// 1.234,5 and 1 234,5 use the comma as decimal separator when it comes last
		commaIdx := strings.LastIndex(cleanVal, ",")
		if commaIdx > strings.LastIndex(cleanVal, ".") && len(cleanVal)-commaIdx-1 <= 2 {
			cleanVal = strings.NewReplacer(".", "", " ", "", ",", ".").Replace(cleanVal)
		} else {
			cleanVal = strings.NewReplacer(",", "", " ", "").Replace(cleanVal)
		}
	case hasComma && strings.Count(cleanVal, ",") > 1:
		cleanVal = strings.ReplaceAll(cleanVal, ",", "")
	case hasComma:
		// a single comma is a decimal separator; mark sheets write 7,5
		cleanVal = strings.ReplaceAll(cleanVal, ",", ".")
	default:
		cleanVal = strings.ReplaceAll(cleanVal, " ", "")
	}

	if isNegative {
		cleanVal = "-" + cleanVal
	}

	val, err := strconv.ParseFloat(cleanVal, 64)
	if err != nil || math.IsInf(val, 0) || math.IsNaN(val) {
		return 0, false
	}
	return val, true
}

// ParseDate parses a test date written as text or stored as an Excel serial day
func ParseDate(strVal string) (time.Time, bool) {
	s := strings.TrimSpace(strVal)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// Serial days between 1 and 2958465 cover 1900-01-01 to 9999-12-31
	if v, err := strconv.ParseFloat(s, 64); err == nil && v >= 1 && v < 2958466 {
		return FromExcelSerial(v), true
	}
	return time.Time{}, false
}

// FromExcelSerial converts an Excel 1900-system serial day number to a date
func FromExcelSerial(v float64) time.Time {
	days := math.Floor(v)
	secs := math.Round((v - days) * 86400)
	return excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
}
