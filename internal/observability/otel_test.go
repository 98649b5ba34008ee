package observability

import "testing"

func TestClampRatio(t *testing.T) {
	cases := map[string]float64{"": 0.1, "junk": 0.1, "-1": 0, "2": 1, "0.25": 0.25}
	for raw, want := range cases {
		if got := clampRatio(raw); got != want {
			t.Fatalf("clampRatio(%q): want=%v got=%v", raw, want, got)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" api-key = abc , broken, =x, tenant=estate ")
	if len(got) != 2 || got["api-key"] != "abc" || got["tenant"] != "estate" {
		t.Fatalf("headers: got=%v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("empty headers should be nil")
	}
}

func TestOtelConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "yes")
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_SAMPLER_RATIO", "0.5")
	cfg := OtelConfigFromEnv()
	if !cfg.Enabled || cfg.ServiceName != defaultServiceName || cfg.SampleRatio != 0.5 {
		t.Fatalf("config: got=%+v", cfg)
	}
}
