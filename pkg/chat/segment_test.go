package chat

import (
	"slices"
	"testing"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "no markers",
			text: "just some noise without stamps",
			want: nil,
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "single message",
			text: "[13:05] come help mvp at xx:00",
			want: []string{"[13:05] come help mvp at xx:00"},
		},
		{
			name: "two messages back to back",
			text: "[13:05] first[13:06] second",
			want: []string{"[13:05] first", "[13:06] second"},
		},
		{
			name: "wrapped message keeps line breaks",
			text: "[13:05] mvp at\nxx:00 ch 5\r\n[13:07] other",
			want: []string{"[13:05] mvp at\nxx:00 ch 5\r\n", "[13:07] other"},
		},
		{
			name: "leading noise dropped",
			text: "garbage [10:00] hello",
			want: []string{"[10:00] hello"},
		},
		{
			name: "malformed marker is content",
			text: "[10:00] see [1:00] and [ab:cd]",
			want: []string{"[10:00] see [1:00] and [ab:cd]"},
		},
		{
			name: "marker only",
			text: "[10:00]",
			want: []string{"[10:00]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lines(tt.text)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Lines(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestSegment_StopsEarly(t *testing.T) {
	text := "[10:00] a[10:01] b[10:02] c"

	var got []string
	for line := range Segment(text) {
		got = append(got, line)
		if len(got) == 2 {
			break
		}
	}

	if len(got) != 2 {
		t.Fatalf("got %d lines, want 2", len(got))
	}
	if got[1] != "[10:01] b" {
		t.Errorf("second line = %q, want %q", got[1], "[10:01] b")
	}
}

func TestSegment_Deterministic(t *testing.T) {
	text := "[10:00] a\n[10:01] b"
	first := Lines(text)
	second := Lines(text)
	if !slices.Equal(first, second) {
		t.Errorf("Lines() not deterministic: %q vs %q", first, second)
	}
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"single row", "[10:00] hi", "[10:00] hi"},
		{"rows joined without separator", "[10:00] mvp at\n  xx:00 ch5  \n", "[10:00] mvp atxx:00 ch5"},
		{"blank rows removed", "\n\n[10:00] a\n\n[10:01] b\n", "[10:00] a[10:01] b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Flatten(tt.in); got != tt.want {
				t.Errorf("Flatten(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
