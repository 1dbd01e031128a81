package telemetry

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Format identifies which wire encoding a line was recognised as.
type Format int

const (
	FormatUnrecognized Format = iota
	FormatHeader
	FormatLabeled
	FormatFlat15
	FormatFlat20
	FormatSingle
)

func (f Format) String() string {
	switch f {
	case FormatHeader:
		return "header"
	case FormatLabeled:
		return "labeled"
	case FormatFlat15:
		return "flat15"
	case FormatFlat20:
		return "flat20"
	case FormatSingle:
		return "single"
	default:
		return "unrecognized"
	}
}

// IndexPolicy decides what happens to a labeled segment whose sensor number
// falls outside 1..5.
type IndexPolicy int

const (
	// IndexClamp coerces the number to the nearest valid sensor.
	IndexClamp IndexPolicy = iota
	// IndexReject drops the segment.
	IndexReject
)

func (p IndexPolicy) String() string {
	if p == IndexReject {
		return "reject"
	}
	return "clamp"
}

// ParseIndexPolicy maps a config value onto an IndexPolicy.
func ParseIndexPolicy(s string) (IndexPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "clamp":
		return IndexClamp, nil
	case "reject":
		return IndexReject, nil
	default:
		return IndexClamp, fmt.Errorf("unsupported index policy %q: expected clamp or reject", s)
	}
}

// ErrIndexOutOfRange is reported internally when a labeled segment names a
// sensor outside 1..5 under IndexReject.
var ErrIndexOutOfRange = errors.New("sensor index out of range")

// Result is the outcome of parsing one line.
type Result struct {
	Format  Format
	Updates []ParsedUpdate
}

// Parser converts lines of sensor text into updates. The zero value clamps
// out-of-range sensor numbers.
type Parser struct {
	Policy IndexPolicy
}

var labeledSegment = regexp.MustCompile(`(?i)^\s*sensor\s*(\d+)\s*:\s*(.*)$`)

// ParseLine parses a line with the default clamping policy.
func ParseLine(line string) []ParsedUpdate {
	return Parser{}.Parse(line).Updates
}

// Parse recognises one line of sensor output. It never fails: anything that
// does not parse only shortens the returned update list.
func (p Parser) Parse(line string) Result {
	line = strings.TrimSpace(line)
	if line == "" {
		return Result{Format: FormatUnrecognized}
	}
	low := strings.ToLower(line)

	if strings.Contains(low, "x,y,z") || strings.HasPrefix(low, "x,") {
		return Result{Format: FormatHeader}
	}

	if strings.Contains(low, "sensor") {
		return Result{Format: FormatLabeled, Updates: p.parseLabeled(line)}
	}

	tokens := splitTokens(line)
	switch len(tokens) {
	case NumSensors * 3:
		return Result{Format: FormatFlat15, Updates: parseFlat(tokens, 3)}
	case NumSensors * 4:
		return Result{Format: FormatFlat20, Updates: parseFlat(tokens, 4)}
	}

	if len(tokens) >= 3 {
		s, err := parseTriplet(tokens)
		if err != nil {
			return Result{Format: FormatSingle}
		}
		return Result{Format: FormatSingle, Updates: []ParsedUpdate{{Index: 0, Sample: s}}}
	}
	return Result{Format: FormatUnrecognized}
}

func (p Parser) parseLabeled(line string) []ParsedUpdate {
	var updates []ParsedUpdate
	for _, seg := range strings.FieldsFunc(line, func(r rune) bool { return r == ';' || r == '|' }) {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		m := labeledSegment.FindStringSubmatch(seg)
		if m == nil {
			continue
		}
		idx, err := p.resolveIndex(m[1])
		if err != nil {
			continue
		}
		payload := strings.TrimSpace(m[2])
		payload = strings.TrimSuffix(payload, ",")
		tokens := splitTokens(payload)
		if len(tokens) < 3 {
			continue
		}
		s, err := parseTriplet(tokens)
		if err != nil {
			continue
		}
		updates = append(updates, ParsedUpdate{Index: idx, Sample: s})
	}
	return updates
}

func (p Parser) resolveIndex(digits string) (SensorIndex, error) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		// only digits reach here, so the sole failure is overflow
		n = math.MaxInt
	}
	if p.Policy == IndexReject && (n < 1 || n > NumSensors) {
		return 0, fmt.Errorf("%w: %s", ErrIndexOutOfRange, digits)
	}
	return ClampWireIndex(n), nil
}

// parseFlat walks fixed-width groups, assigning sensors in order. A bad group
// ends the walk and keeps what came before it.
func parseFlat(tokens []string, width int) []ParsedUpdate {
	updates := make([]ParsedUpdate, 0, NumSensors)
	for i := 0; i < NumSensors; i++ {
		group := tokens[i*width : (i+1)*width]
		s, err := parseTriplet(group)
		if err != nil {
			break
		}
		updates = append(updates, ParsedUpdate{Index: SensorIndex(i), Sample: s})
	}
	return updates
}

// parseTriplet reads x,y,z and, when present, a fourth force token.
func parseTriplet(tokens []string) (Sample, error) {
	var v [3]float64
	for i := range v {
		f, err := parseNumber(tokens[i])
		if err != nil {
			return Sample{}, err
		}
		v[i] = f
	}
	if len(tokens) >= 4 {
		force, err := parseNumber(tokens[3])
		if err != nil {
			return Sample{}, err
		}
		return NewSampleWithForce(v[0], v[1], v[2], force), nil
	}
	return NewSample(v[0], v[1], v[2]), nil
}

// parseNumber accepts out-of-range magnitudes as the ±Inf ParseFloat returns
// for them.
func parseNumber(tok string) (float64, error) {
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, err
	}
	return f, nil
}

// splitTokens splits on commas and drops empty tokens.
func splitTokens(s string) []string {
	parts := strings.Split(s, ",")
	tokens := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
