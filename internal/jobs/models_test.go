package jobs

import "testing"

func TestParseStatus(t *testing.T) {
	cases := []struct {
		input string
		want  Status
		ok    bool
	}{
		{"received", StatusReceived, true},
		{" Processing ", StatusProcessing, true},
		{"COMPLETED", StatusCompleted, true},
		{"failed", StatusFailed, true},
		{"", "", false},
		{"done", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseStatus(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseStatus(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusReceived, StatusProcessing, true},
		{StatusReceived, StatusCompleted, true},
		{StatusReceived, StatusFailed, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusReceived, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusFailed, StatusCompleted, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if StatusReceived.IsTerminal() || StatusProcessing.IsTerminal() {
		t.Fatal("non-terminal statuses reported terminal")
	}
	if !StatusCompleted.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Fatal("terminal statuses not reported terminal")
	}
}
