package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Placeholder is shown wherever a value has not arrived yet.
const Placeholder = "—"

func FormatCount(n *int) string {
	if n == nil {
		return Placeholder
	}
	return strconv.Itoa(*n)
}

func FormatLabel(s *string) string {
	if s == nil || *s == "" {
		return Placeholder
	}
	return *s
}

// FormatCounts renders label counts highest first, ties broken by name.
func FormatCounts(counts map[string]float64) string {
	if len(counts) == 0 {
		return Placeholder
	}

	labels := make([]string, 0, len(counts))
	for k := range counts {
		labels = append(labels, k)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l + ": " + strconv.FormatFloat(counts[l], 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}

// PrettyJSON indents raw for display. Invalid JSON is returned unchanged.
func PrettyJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func FormatFrames(n int) string {
	if n == 1 {
		return "1 frame"
	}
	return fmt.Sprintf("%d frames", n)
}

func FormatRate(interval time.Duration) string {
	if interval <= 0 {
		return ""
	}

	rate := float64(time.Second) / float64(interval)
	if rate == 1 {
		return "Sending 1 frame/sec"
	}
	return fmt.Sprintf("Sending %s frames/sec", strconv.FormatFloat(rate, 'g', 3, 64))
}

func FormatLatency(ms int64) string {
	return fmt.Sprintf("Latency: %d ms", ms)
}
