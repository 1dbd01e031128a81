// Package testutil provides shared test utilities and fixtures.
//
// The helpers build wire lines in the formats the sensor firmware emits so
// tests across packages describe input the same way.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// CSVLine joins values with commas, e.g. CSVLine(1, 2, 3) == "1,2,3".
func CSVLine(values ...float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Sequence returns n values start, start+1, ...
func Sequence(start float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

// LabeledSegment renders "Sensor n: v1,v2,..." with a 1-based sensor number.
func LabeledSegment(n int, values ...float64) string {
	return "Sensor " + strconv.Itoa(n) + ": " + CSVLine(values...)
}

// LoopbackRequest creates an httptest request that appears to come from
// localhost, which tsweb debug handlers require.
func LoopbackRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}
