package memory

import (
	"strings"
	"testing"
)

func TestChunkText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxRunes int
		want     []string
	}{
		{
			name:     "short text stays whole",
			text:     "hello",
			maxRunes: 10,
			want:     []string{"hello"},
		},
		{
			name:     "exact boundary",
			text:     "abcdef",
			maxRunes: 6,
			want:     []string{"abcdef"},
		},
		{
			name:     "even split",
			text:     "abcdef",
			maxRunes: 3,
			want:     []string{"abc", "def"},
		},
		{
			name:     "uneven tail",
			text:     "abcdefg",
			maxRunes: 3,
			want:     []string{"abc", "def", "g"},
		},
		{
			name:     "zero boundary disables chunking",
			text:     "abcdef",
			maxRunes: 0,
			want:     []string{"abcdef"},
		},
		{
			name:     "multibyte runes split on rune boundary",
			text:     "日本語テキスト",
			maxRunes: 3,
			want:     []string{"日本語", "テキス", "ト"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChunkText(tt.text, tt.maxRunes)
			if len(got) != len(tt.want) {
				t.Fatalf("ChunkText() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
			// Chunks reassemble to the original.
			if strings.Join(got, "") != tt.text {
				t.Errorf("chunks do not reassemble: %v", got)
			}
		})
	}
}

func TestChunkTextDeterministic(t *testing.T) {
	text := strings.Repeat("deploy redis with docker compose. ", 100)
	first := ChunkText(text, 64)
	second := ChunkText(text, 64)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}
