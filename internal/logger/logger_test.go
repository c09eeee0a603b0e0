package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestDebugf(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf)
	l.SetFlags(0)

	l.Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("Debugf() wrote %q with verbose off", buf.String())
	}

	l.SetVerbose(true)
	if !l.Verbose() {
		t.Fatal("Verbose() = false after SetVerbose(true)")
	}
	l.Debugf("shown %d", 2)
	if got := strings.TrimSpace(buf.String()); got != "shown 2" {
		t.Errorf("Debugf() wrote %q, want %q", got, "shown 2")
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.SetVerbose(true)
	l.Printf("dropped")
	l.Debugf("dropped")
}
