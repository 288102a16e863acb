package validator

import (
	"strconv"
	"strings"
	"time"
)

// ValidationError is a message attached to one request field.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors collects field errors while a request is checked. The zero
// value is ready to use.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, err := range v {
		msgs = append(msgs, err.Field+": "+err.Message)
	}
	return strings.Join(msgs, "; ")
}

// ToMap keeps the first message recorded for each field.
func (v ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string, len(v))
	for _, err := range v {
		if _, seen := result[err.Field]; !seen {
			result[err.Field] = err.Message
		}
	}
	return result
}

// Err returns nil when nothing was recorded, so callers never hand back a
// typed nil.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ValidationError{Field: field, Message: message})
}

// Required records "<field> is required" when value is blank.
func (v *ValidationErrors) Required(field, value string) {
	if IsEmpty(value) {
		v.Add(field, field+" is required")
	}
}

// Date parses value as YYYY-MM-DD.
func (v *ValidationErrors) Date(field, value string) (time.Time, bool) {
	date, ok := IsValidDate(value)
	if !ok {
		v.Add(field, field+" must be in YYYY-MM-DD format")
	}
	return date, ok
}

// DateRange parses an inclusive range. An end before the start is reported
// against endField.
func (v *ValidationErrors) DateRange(startField, start, endField, end string) (time.Time, time.Time) {
	from, okStart := v.Date(startField, start)
	to, okEnd := v.Date(endField, end)
	if okStart && okEnd && to.Before(from) {
		v.Add(endField, endField+" must not be before "+startField)
	}
	return from, to
}

// Year parses a four digit year.
func (v *ValidationErrors) Year(field, value string) (int, bool) {
	year, ok := IsYear(value)
	if !ok {
		v.Add(field, field+" must be a 4 digit number")
	}
	return year, ok
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsYear accepts exactly four ASCII digits.
func IsYear(s string) (int, bool) {
	if len(s) != 4 {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	year, err := strconv.Atoi(s)
	return year, err == nil
}

// IsValidDate parses a calendar date in YYYY-MM-DD form.
func IsValidDate(dateStr string) (time.Time, bool) {
	date, err := time.Parse(time.DateOnly, dateStr)
	return date, err == nil
}
