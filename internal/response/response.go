// Package response aggregates the results of the sub-operations run for one
// request and reconciles them into a single HTTP status and JSON body.
package response

import (
	"encoding/json"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"
)

// StatusKey is the field a result uses to report its outcome.
const StatusKey = "status"

// emptyBody is written for a payload with no results.
var emptyBody = []byte("[]")

// Result is the outcome record of one named sub-operation.
type Result map[string]any

// Payload maps sub-operation names to their results. A payload may also carry
// a top-level status of its own (the flat shape).
type Payload map[string]any

// New returns an empty payload.
func New() Payload {
	return Payload{}
}

// Record stores r under name, replacing an earlier result with the same name.
func (p Payload) Record(name string, r Result) {
	p[name] = r
}

// Status returns the highest usable status found in p, or 0 when there is none.
func (p Payload) Status() int {
	highest := 0
	for _, v := range p {
		if s, ok := RecordStatus(v); ok && s > highest {
			highest = s
		}
	}

	// Flat shape: status sits on the payload itself.
	if s, ok := StatusOf(p[StatusKey]); ok && s > highest {
		highest = s
	}
	return highest
}

// Reconcile computes the overall status and the encoded body for p. A zero
// status means the transport default should be left alone.
func Reconcile(p Payload) (int, []byte) {
	status := p.Status()
	if len(p) == 0 {
		return status, emptyBody
	}

	body, err := json.Marshal(p)
	if err != nil {
		return http.StatusInternalServerError, []byte(`{"status":500,"errors":"response encoding failed"}`)
	}
	return status, body
}

// Write reconciles p onto w and returns the status code actually sent.
func Write(w http.ResponseWriter, p Payload) int {
	status, body := Reconcile(p)

	w.Header().Set("Content-Type", "application/json")
	if status > 0 {
		w.WriteHeader(status)
	} else {
		status = http.StatusOK
	}
	_, _ = w.Write(body)
	return status
}

// StatusOf extracts a status code from v. Values that are absent, not numeric,
// not integral or outside the 100-599 range are reported as unusable.
func StatusOf(v any) (int, bool) {
	var n int64
	switch t := v.(type) {
	case int:
		n = int64(t)
	case int8:
		n = int64(t)
	case int16:
		n = int64(t)
	case int32:
		n = int64(t)
	case int64:
		n = t
	case uint:
		if uint64(t) > math.MaxInt64 {
			return 0, false
		}
		n = int64(t)
	case uint8:
		n = int64(t)
	case uint16:
		n = int64(t)
	case uint32:
		n = int64(t)
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		n = int64(t)
	case float32:
		return statusFromFloat(float64(t))
	case float64:
		return statusFromFloat(t)
	case json.Number:
		return statusFromString(t.String())
	case string:
		return statusFromString(t)
	default:
		return statusOfKind(reflect.ValueOf(v))
	}
	return checkRange(n)
}

// statusOfKind handles named types whose underlying kind is numeric or string.
func statusOfKind(rv reflect.Value) (int, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return checkRange(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return 0, false
		}
		return checkRange(int64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return statusFromFloat(rv.Float())
	case reflect.String:
		return statusFromString(rv.String())
	default:
		return 0, false
	}
}

func statusFromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < 100 || f > 599 {
		return 0, false
	}
	return checkRange(int64(f))
}

func statusFromString(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return checkRange(n)
	}
	if strings.ContainsAny(s, "xX") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return statusFromFloat(f)
}

func checkRange(n int64) (int, bool) {
	if n < 100 || n > 599 {
		return 0, false
	}
	return int(n), true
}

// RecordStatus returns the usable status of a nested record: any map keyed
// by strings (or a pointer to one) that carries a status field.
func RecordStatus(v any) (int, bool) {
	field, ok := statusField(v)
	if !ok {
		return 0, false
	}
	return StatusOf(field)
}

func statusField(v any) (any, bool) {
	switch t := v.(type) {
	case Result:
		f, ok := t[StatusKey]
		return f, ok
	case Payload:
		f, ok := t[StatusKey]
		return f, ok
	case map[string]any:
		f, ok := t[StatusKey]
		return f, ok
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	f := rv.MapIndex(reflect.ValueOf(StatusKey).Convert(rv.Type().Key()))
	if !f.IsValid() {
		return nil, false
	}
	return f.Interface(), true
}
