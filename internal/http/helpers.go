package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kakeibo/internal/core"
)

// parseMonth extracts a month key from query parameters, falling back to
// the current month when absent or malformed.
func parseMonth(r *http.Request) string {
	if v := strings.TrimSpace(r.URL.Query().Get("month")); core.ValidMonth(v) {
		return v
	}
	return core.MonthKey(time.Now())
}

// parseFilter builds the transaction filter from query parameters.
// Unknown values for type and purpose fall back to pass-all rather than
// erroring, since filters arrive from select controls.
func parseFilter(values url.Values) core.Filter {
	var f core.Filter

	if t := core.TxType(strings.TrimSpace(values.Get("type"))); t.IsValid() {
		f.Type = t
	}
	if p := core.Purpose(strings.TrimSpace(values.Get("purpose"))); p.IsValid() {
		f.Purpose = p
	}
	f.Category = strings.TrimSpace(values.Get("category"))
	f.Query = sanitizeInput(values.Get("q"))
	if v := strings.TrimSpace(values.Get("from")); core.ValidDate(v) {
		f.DateFrom = v
	}
	if v := strings.TrimSpace(values.Get("to")); core.ValidDate(v) {
		f.DateTo = v
	}
	return f
}

// sanitizeInput trims whitespace and strips control characters except
// tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
