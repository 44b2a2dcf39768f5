package logger

import (
	"bytes"
	"testing"
)

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "template unchanged",
			input:    `ffmpeg -i {input} -metadata "title=Café" {output}`,
			expected: `ffmpeg -i {input} -metadata "title=Café" {output}`,
		},
		{
			name:     "path unchanged",
			input:    "/tmp/ffmpeg-job-1/input.mov",
			expected: "/tmp/ffmpeg-job-1/input.mov",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "stderr newlines escaped",
			input:    "Input #0\n  Duration: 00:00:02.00",
			expected: "Input #0\\n  Duration: 00:00:02.00",
		},
		{
			name:     "progress carriage returns escaped",
			input:    "size=1kB\rsize=2kB",
			expected: "size=1kB\\rsize=2kB",
		},
		{
			name:     "tab escaped",
			input:    "a\tb",
			expected: "a\\tb",
		},
		{
			name:     "null byte escaped",
			input:    "before\x00after",
			expected: "before\\x00after",
		},
		{
			name:     "ANSI escape code escaped",
			input:    "\x1b[31mred\x1b[0m",
			expected: "\\x1b[31mred\\x1b[0m",
		},
		{
			name:     "DEL escaped",
			input:    "del\x7f",
			expected: "del\\x7f",
		},
		{
			name:     "fake log entry injection",
			input:    "out.mp4\nERROR: fake entry",
			expected: "out.mp4\\nERROR: fake entry",
		},
		{
			name:     "C1 control escaped",
			input:    "a\u0085b",
			expected: "a\\x85b",
		},
		{
			name:     "line separator escaped",
			input:    "a\u2028b",
			expected: "a\\u2028b",
		},
		{
			name:     "unicode preserved",
			input:    "中文文件名.mp4 👋",
			expected: "中文文件名.mp4 👋",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeForLog(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeForLog(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{name: "shorter than limit", input: "abc", n: 10, expected: "abc"},
		{name: "cut at limit", input: "abcdef", n: 3, expected: "abc"},
		{name: "cut is sanitized", input: "a\nbcdef", n: 3, expected: "a\\nb"},
		{name: "does not split a rune", input: "aé", n: 2, expected: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Snippet(tt.input, tt.n); got != tt.expected {
				t.Errorf("Snippet(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.expected)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	defer SetLevel("info")

	SetLevel("debug")
	Debug.SetOutput(&buf)
	Debug.Print("visible")
	if buf.Len() == 0 {
		t.Fatal("debug output should be written after SetLevel(debug)")
	}

	SetLevel("info")
	buf.Reset()
	Debug.Print("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug output should be discarded, got %q", buf.String())
	}
}
