package thread

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Request carries the client-supplied fields the thread actions read.
type Request struct {
	Actions     []string `json:"actions"`
	Post        string   `json:"post"`
	ThreadTitle *string  `json:"thread_title"`
	PostID      ID       `json:"post_id"`
	ThreadID    ID       `json:"thread_id"`
}

// ID is a record id as sent by a client: a JSON number, a numeric string, or
// anything else, which is kept so the action can reject it.
type ID struct {
	raw string
}

// ParseID wraps a raw id taken from a URL path.
func ParseID(s string) ID {
	return ID{raw: s}
}

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		id.raw = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		id.raw = s
		return nil
	}
	id.raw = string(b)
	return nil
}

// Int64 returns the id when it is a whole number. Numeric forms with an
// integral value, such as "3.0" or "1e1", are accepted.
func (id ID) Int64() (int64, bool) {
	s := strings.TrimSpace(id.raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if strings.ContainsAny(s, "xX") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func (id ID) String() string {
	return id.raw
}
