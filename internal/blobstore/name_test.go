package blobstore

import (
	"testing"
	"time"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		name  string
		owner string
		hint  string
		want  string
	}{
		{name: "plain", owner: "lq1x-abc123", hint: "report.pdf", want: "lq1x-abc123-a-report.pdf"},
		{name: "spaces and slashes", owner: "n1", hint: "my dir/../secret file.txt", want: "n1-a-my_dir_.._secret_file.txt"},
		{name: "dots only", owner: "n1", hint: "..", want: "n1-a-file"},
		{name: "empty hint", owner: "n1", hint: "  ", want: "n1-a-file"},
		{name: "unicode", owner: "n1", hint: "résumé.doc", want: "n1-a-r_sum_.doc"},
		{name: "empty owner", owner: "", hint: "x", want: "note-a-x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeName(tt.owner, 10, tt.hint)
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSafeNameCapsLength(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	got := SafeName("n1", 10, string(long))
	if len(got) != len("n1-a-")+maxNamePartLen {
		t.Fatalf("expected capped name, got length %d", len(got))
	}
}

func TestMonotonicStampStrictlyIncreases(t *testing.T) {
	var m monotonicStamp
	now := time.Unix(100, 0)
	first := m.next(now)
	second := m.next(now)
	third := m.next(now.Add(-time.Second))
	if !(first < second && second < third) {
		t.Fatalf("expected strictly increasing stamps, got %d %d %d", first, second, third)
	}
}
