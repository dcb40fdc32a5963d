package api

import (
	"testing"
)

func TestFormatLogLine(t *testing.T) {
	input := `time=2026-01-18T06:50:46.074+01:00 level=INFO msg="Stage transition" session=sess-1 from=recommendation to=image_generation seq=3 longparam=thisiswaytooLongtobedisplayed`
	expected := "06:50:46 Stage transition (from=recommendation, seq=3, session=sess-1, to=image_generation)"

	result := formatLogLine(input)
	if result != expected {
		t.Errorf("Expected '%s', got '%s'", expected, result)
	}
}

func TestFormatLogLinePassthrough(t *testing.T) {
	input := "not a structured line"
	if got := formatLogLine(input); got != input {
		t.Errorf("Expected passthrough, got '%s'", got)
	}
}
