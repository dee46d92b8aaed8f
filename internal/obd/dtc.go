package obd

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"obdboard/internal/models"
)

var dtcLetters = []byte{'P', 'C', 'B', 'U'}

// ParseTroubleCodes decodes a mode 03 reply. Each code is two bytes per
// SAE J2012: the top two bits select the letter, the remaining nibbles the
// digits. On CAN protocols the first byte after 43 is the code count.
func ParseTroubleCodes(raw string, can bool) []models.DTCEntry {
	var results []models.DTCEntry
	seen := make(map[string]bool)

	lines := splitLines(raw)
	if can {
		lines = joinCANFrames(lines)
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "43") {
			continue
		}
		rest := line[2:]
		if len(rest)%2 == 1 {
			rest = rest[:len(rest)-1]
		}
		data, err := hex.DecodeString(rest)
		if err != nil {
			continue
		}
		if can && len(data) > 0 {
			data = data[1:]
		}
		for j := 0; j+1 < len(data); j += 2 {
			a, b := data[j], data[j+1]
			// zero pairs are padding
			if a == 0 && b == 0 {
				continue
			}
			code := decodeDTC(a, b)
			if seen[code] {
				continue
			}
			seen[code] = true
			results = append(results, models.DTCEntry{Code: code, Description: DescribeDTC(code)})
		}
	}
	return results
}

// joinCANFrames reassembles multi-frame CAN replies. With headers off the
// adapter prints the payload length as three hex digits followed by frames
// numbered "0:", "1:", ...; single-frame lines pass through unchanged.
func joinCANFrames(lines []string) []string {
	out := make([]string, 0, len(lines))
	var frames strings.Builder
	size := -1

	flush := func() {
		if size < 0 {
			return
		}
		payload := frames.String()
		if len(payload) > size*2 {
			payload = payload[:size*2]
		}
		out = append(out, payload)
		frames.Reset()
		size = -1
	}

	for _, line := range lines {
		if len(line) == 3 {
			if n, err := strconv.ParseUint(line, 16, 16); err == nil {
				flush()
				size = int(n)
				continue
			}
		}
		if size >= 0 && len(line) > 2 && line[1] == ':' {
			frames.WriteString(line[2:])
			continue
		}
		flush()
		out = append(out, line)
	}
	flush()
	return out
}

func decodeDTC(a, b byte) string {
	letter := dtcLetters[(a&0xC0)>>6]
	return fmt.Sprintf("%c%X%X%X%X", letter, (a&0x30)>>4, a&0x0F, (b&0xF0)>>4, b&0x0F)
}

var dtcDescriptions = map[string]string{
	"P0101": "Mass Air Flow Circuit Range/Performance",
	"P0102": "Mass Air Flow Circuit Low Input",
	"P0103": "Mass Air Flow Circuit High Input",
	"P0171": "System Too Lean (Bank 1)",
	"P0172": "System Too Rich (Bank 1)",
	"P0174": "System Too Lean (Bank 2)",
	"P0175": "System Too Rich (Bank 2)",
	"P0300": "Random/Multiple Cylinder Misfire Detected",
	"P0301": "Cylinder 1 Misfire Detected",
	"P0302": "Cylinder 2 Misfire Detected",
	"P0303": "Cylinder 3 Misfire Detected",
	"P0304": "Cylinder 4 Misfire Detected",
	"P0401": "Exhaust Gas Recirculation Flow Insufficient",
	"P0420": "Catalyst System Efficiency Below Threshold",
	"P0440": "Evaporative Emission Control System Malfunction",
	"P0442": "Evaporative Emission Control System Leak Detected (Small)",
	"P0455": "Evaporative Emission Control System Leak Detected (Large)",
	"P0500": "Vehicle Speed Sensor Malfunction",
	"P0505": "Idle Control System Malfunction",
	"B1000": "Body Control Module Malfunction",
	"U0100": "Lost Communication With ECM/PCM",
	"U0101": "Lost Communication With TCM",
	"U0121": "Lost Communication With ABS Module",
	"U0140": "Lost Communication With Body Control Module",
}

// DescribeDTC returns a human readable description for common codes.
func DescribeDTC(code string) string {
	if desc, ok := dtcDescriptions[code]; ok {
		return desc
	}
	return "Unknown DTC"
}
