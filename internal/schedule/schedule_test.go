package schedule

import "testing"

func TestValidInterval(t *testing.T) {
	t.Parallel()
	cases := []struct {
		n    int
		want bool
	}{
		{0, false},
		{-1, false},
		{1, true},
		{60, true},
		{MaxIntervalSeconds, true},
		{MaxIntervalSeconds + 1, false},
		{9300000000, false},
	}
	for _, tc := range cases {
		if got := ValidInterval(tc.n); got != tc.want {
			t.Errorf("ValidInterval(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}
}

func TestParse(t *testing.T) {
	t.Parallel()
	for _, spec := range []string{"0 9 * * *", " @hourly ", "@every 30m"} {
		if _, err := Parse(spec); err != nil {
			t.Errorf("Parse(%q): %v", spec, err)
		}
	}
	for _, spec := range []string{"", "0 0 9 * * *", "tomorrow"} {
		if _, err := Parse(spec); err == nil {
			t.Errorf("Parse(%q): expected error", spec)
		}
	}
}
