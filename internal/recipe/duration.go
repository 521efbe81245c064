package recipe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var isoDuration = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?`)

// FormatDuration renders an ISO-8601-like duration ("PT1H30M") for the draft
// editor, e.g. "1 hr 30 min". Free text that was typed by the user is returned
// unchanged.
func FormatDuration(d string) string {
	m := isoDuration.FindStringSubmatch(d)
	if m == nil {
		return d
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])

	var parts []string
	if hours > 0 {
		suffix := ""
		if hours > 1 {
			suffix = "s"
		}
		parts = append(parts, fmt.Sprintf("%d hr%s", hours, suffix))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d min", minutes))
	}
	if len(parts) == 0 {
		return "0 min"
	}
	return strings.Join(parts, " ")
}

// CompactDuration renders a duration for recipe previews ("1h 30m"), using an
// em dash when the value is missing or carries no hours or minutes.
func CompactDuration(d string) string {
	const missing = "—"
	if d == "" {
		return missing
	}
	m := isoDuration.FindStringSubmatch(d)
	if m == nil {
		return missing
	}
	var out string
	if m[1] != "" {
		out += m[1] + "h "
	}
	if m[2] != "" {
		out += m[2] + "m"
	}
	if out == "" {
		return missing
	}
	return strings.TrimSpace(out)
}
