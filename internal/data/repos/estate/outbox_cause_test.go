package estate

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateCauseKeepsRunesWhole(t *testing.T) {
	short := "redis: connection refused"
	if got := truncateCause(short); got != short {
		t.Fatalf("short cause: want=%q got=%q", short, got)
	}

	// "é" is two bytes, so byte maxLastErrorLen falls inside a rune.
	long := "x" + strings.Repeat("é", maxLastErrorLen)
	got := truncateCause(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated cause is not valid utf-8")
	}
	if len(got) != maxLastErrorLen-1 {
		t.Fatalf("length: want=%d got=%d", maxLastErrorLen-1, len(got))
	}

	ascii := strings.Repeat("a", maxLastErrorLen+10)
	if got := truncateCause(ascii); len(got) != maxLastErrorLen {
		t.Fatalf("ascii length: want=%d got=%d", maxLastErrorLen, len(got))
	}
}
