package obd

import (
	"encoding/hex"
	"strings"
)

// Response is the decoded reply to one Command. Value is nil when the
// adapter had no usable data.
type Response struct {
	Command Command
	Raw     string
	Value   *Quantity
}

func (r Response) IsNull() bool {
	return r.Value == nil
}

// ParseResponse decodes an ELM327 reply to cmd. Replies may carry spaces,
// several lines (one per ECU) and status lines such as SEARCHING...; the
// first line holding a positive reply wins. NO DATA, "?" and bus errors
// decode to a null Response.
func ParseResponse(cmd Command, raw string) Response {
	resp := Response{Command: cmd, Raw: raw}
	if cmd.decode == nil || cmd.Bytes == 0 {
		return resp
	}
	if data, ok := payload(cmd, raw); ok {
		resp.Value = cmd.decode(data)
	}
	return resp
}

func payload(cmd Command, raw string) ([]byte, bool) {
	prefix := cmd.replyPrefix()
	for _, line := range splitLines(raw) {
		i := strings.Index(line, prefix)
		if i < 0 {
			continue
		}
		rest := line[i+len(prefix):]
		if len(rest) < cmd.Bytes*2 {
			continue
		}
		data, err := hex.DecodeString(rest[:cmd.Bytes*2])
		if err != nil {
			continue
		}
		return data, true
	}
	return nil, false
}

// splitLines normalizes a raw reply into upper-case lines without spaces.
func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, ">", "")
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == '\r' || r == '\n' })
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToUpper(strings.ReplaceAll(f, " ", ""))
		if f != "" {
			lines = append(lines, f)
		}
	}
	return lines
}

// IsNoData reports whether raw is one of the adapter's negative replies.
func IsNoData(raw string) bool {
	up := strings.ToUpper(raw)
	for _, s := range []string{"NO DATA", "NODATA", "UNABLE TO CONNECT", "CAN ERROR", "BUS ERROR", "BUS INIT: ERROR", "STOPPED", "?"} {
		if strings.Contains(up, s) {
			return true
		}
	}
	return false
}
