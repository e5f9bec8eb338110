// internal/harvest/gaps/encode.go
package gaps

import (
	"fmt"
	"strconv"
	"strings"
)

// NoneSentinel is the persisted form meaning "no outstanding ranges".
const NoneSentinel = "-1"

// EncodeRanges renders ranges in the persisted errors_at text layout:
// "-1" when nothing is outstanding, otherwise a list of inclusive
// pairs like "[(2, 5), (8, 9)]".
func EncodeRanges(ranges []Range) string {
	if len(ranges) == 0 {
		return NoneSentinel
	}
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, fmt.Sprintf("(%d, %d)", r.Start, r.End))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// DecodeRanges parses the persisted errors_at text layout. The sentinel
// "-1" (and an empty list) decode to nil.
func DecodeRanges(raw string) ([]Range, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == NoneSentinel {
		return nil, nil
	}
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return nil, fmt.Errorf("malformed range list %q", raw)
	}

	inner := strings.TrimSpace(raw[1 : len(raw)-1])
	if inner == "" {
		return nil, nil
	}

	var ranges []Range
	for inner != "" {
		if !strings.HasPrefix(inner, "(") {
			return nil, fmt.Errorf("malformed range list %q", raw)
		}
		close := strings.IndexByte(inner, ')')
		if close < 0 {
			return nil, fmt.Errorf("malformed range list %q", raw)
		}

		pair := strings.Split(inner[1:close], ",")
		if len(pair) != 2 {
			return nil, fmt.Errorf("malformed range pair in %q", raw)
		}
		start, err := strconv.Atoi(strings.TrimSpace(pair[0]))
		if err != nil {
			return nil, fmt.Errorf("malformed range start in %q: %w", raw, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(pair[1]))
		if err != nil {
			return nil, fmt.Errorf("malformed range end in %q: %w", raw, err)
		}
		ranges = append(ranges, Range{Start: start, End: end})

		inner = strings.TrimSpace(inner[close+1:])
		inner = strings.TrimSpace(strings.TrimPrefix(inner, ","))
	}
	return ranges, nil
}
