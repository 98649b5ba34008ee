package envutil

import (
	"testing"
	"time"
)

func TestReadersFallBackToDefaults(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "notanumber")
	t.Setenv("ENVUTIL_BOOL", "maybe")
	t.Setenv("ENVUTIL_STR", "  ")
	if got := Int("ENVUTIL_INT", 7); got != 7 {
		t.Fatalf("int: want=7 got=%d", got)
	}
	if got := Bool("ENVUTIL_BOOL", true); !got {
		t.Fatalf("bool: want=true got=%v", got)
	}
	if got := String("ENVUTIL_STR", "def"); got != "def" {
		t.Fatalf("string: want=def got=%q", got)
	}
	if got := Seconds("ENVUTIL_MISSING", 3*time.Second); got != 3*time.Second {
		t.Fatalf("seconds: want=3s got=%s", got)
	}
}

func TestReadersParseValues(t *testing.T) {
	t.Setenv("ENVUTIL_INT", " 42 ")
	t.Setenv("ENVUTIL_BOOL", "off")
	t.Setenv("ENVUTIL_SECS", "15")
	if got := Int("ENVUTIL_INT", 0); got != 42 {
		t.Fatalf("int: want=42 got=%d", got)
	}
	if got := Bool("ENVUTIL_BOOL", true); got {
		t.Fatalf("bool: want=false got=%v", got)
	}
	if got := Seconds("ENVUTIL_SECS", 0); got != 15*time.Second {
		t.Fatalf("seconds: want=15s got=%s", got)
	}
}
