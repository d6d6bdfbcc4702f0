// Package validate checks single task fields. Every function is pure and
// reports failure through Result instead of an error, so the caller picks
// the response.
package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/BuzzLyutic/taskflow-api/internal/model"
)

const (
	MaxTitleLen       = 200
	MaxDescriptionLen = 2000
	MinPriority       = 1
	MaxPriority       = 5
	MinDueYear        = 2000
	MaxDueYear        = 2100
)

type Reason string

const (
	ReasonRequired     Reason = "required"
	ReasonInvalidType  Reason = "invalid_type"
	ReasonEmpty        Reason = "empty"
	ReasonTooLong      Reason = "too_long"
	ReasonOutOfRange   Reason = "out_of_range"
	ReasonInvalidDate  Reason = "invalid_date"
	ReasonInvalidValue Reason = "invalid_value"
)

// Result is accepted (Valid, with an optional normalized Value) or rejected
// (Reason and Message set).
type Result struct {
	Valid   bool
	Field   string
	Reason  Reason
	Message string
	Value   any
}

func ok(field string, v any) Result {
	return Result{Valid: true, Field: field, Value: v}
}

func reject(field string, reason Reason, format string, args ...any) Result {
	return Result{Field: field, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Title trims the value and returns the trimmed string as Value.
func Title(v any) Result {
	if v == nil {
		return reject("title", ReasonRequired, "title is required")
	}
	s, isStr := v.(string)
	if !isStr {
		return reject("title", ReasonInvalidType, "title must be a string")
	}
	trimmed := strings.TrimSpace(s)
	n := utf8.RuneCountInString(trimmed)
	if n == 0 {
		return reject("title", ReasonEmpty, "title must not be empty")
	}
	if n > MaxTitleLen {
		return reject("title", ReasonTooLong, "title must be at most %d characters (got %d)", MaxTitleLen, n)
	}
	return ok("title", trimmed)
}

// Priority accepts json.Number (decoder with UseNumber), float64 or int and
// returns the value as int.
func Priority(v any) Result {
	f, isNum := number(v)
	if !isNum || math.Trunc(f) != f || math.IsInf(f, 0) {
		return reject("priority", ReasonInvalidType, "priority must be an integer")
	}
	if f < MinPriority || f > MaxPriority {
		return reject("priority", ReasonOutOfRange, "priority must be between %d and %d (got %s)",
			MinPriority, MaxPriority, formatNumber(v, f))
	}
	return ok("priority", int(f))
}

// DueDate checks format and year bounds only. Whether a date in the past is
// acceptable is left to the caller.
func DueDate(v any) Result {
	s, isStr := v.(string)
	if !isStr {
		return reject("due_date", ReasonInvalidType, "due_date must be a string")
	}
	t, err := ParseDate(s)
	if err != nil {
		return reject("due_date", ReasonInvalidDate, "due_date must be a valid ISO-8601 date")
	}
	if y := t.UTC().Year(); y < MinDueYear || y > MaxDueYear {
		return reject("due_date", ReasonOutOfRange, "due_date year must be between %d and %d", MinDueYear, MaxDueYear)
	}
	return ok("due_date", s)
}

func Status(v any) Result {
	s, isStr := v.(string)
	if !isStr {
		return reject("status", ReasonInvalidType, "status must be a string")
	}
	if !model.Status(s).IsValid() {
		names := make([]string, len(model.Statuses))
		for i, st := range model.Statuses {
			names[i] = string(st)
		}
		return reject("status", ReasonInvalidValue, "status must be one of: %s (got '%s')", strings.Join(names, ", "), s)
	}
	return ok("status", model.Status(s))
}

// Description allows null. It is not one of the shared required-field
// checks, the lifecycle controller calls it inline.
func Description(v any) Result {
	if v == nil {
		return ok("description", (*string)(nil))
	}
	s, isStr := v.(string)
	if !isStr {
		return reject("description", ReasonInvalidType, "description must be a string")
	}
	if utf8.RuneCountInString(s) > MaxDescriptionLen {
		return reject("description", ReasonTooLong, "description must be at most %d characters", MaxDescriptionLen)
	}
	return ok("description", &s)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate accepts the ISO-8601 date and date-time shapes clients send.
func ParseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func formatNumber(v any, f float64) string {
	if n, isNum := v.(json.Number); isNum {
		return n.String()
	}
	return fmt.Sprintf("%g", f)
}
