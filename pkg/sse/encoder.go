// Package sse streams Server-Sent-Events responses for sse-type mocks:
// canonical event framing plus the per-connection interval session
// controller.
package sse

import (
	"strconv"
	"strings"
)

// SSE field prefixes per the W3C EventSource specification.
const (
	fieldID    = "id: "
	fieldEvent = "event: "
	fieldRetry = "retry: "
	fieldData  = "data: "
)

// FormatEvent renders one event frame. Empty id and event fields are
// omitted, retry is omitted unless positive, and multiline data is split
// so every physical line carries its own data: prefix. The frame ends
// with the blank line that dispatches the event.
func FormatEvent(id, event string, retryMs int, data string) string {
	var sb strings.Builder

	if event != "" {
		sb.WriteString(fieldEvent)
		sb.WriteString(sanitizeField(event))
		sb.WriteByte('\n')
	}
	if id != "" {
		sb.WriteString(fieldID)
		sb.WriteString(sanitizeField(id))
		sb.WriteByte('\n')
	}
	if retryMs > 0 {
		sb.WriteString(fieldRetry)
		sb.WriteString(strconv.Itoa(retryMs))
		sb.WriteByte('\n')
	}

	for _, line := range strings.Split(data, "\n") {
		sb.WriteString(fieldData)
		sb.WriteString(line)
		sb.WriteByte('\n')
	}

	sb.WriteByte('\n')
	return sb.String()
}

// sanitizeField strips newlines from single-line fields so a crafted
// value cannot smuggle extra frames.
func sanitizeField(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	return strings.ReplaceAll(s, "\r", "")
}
