package llm

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		minTokens int
		maxTokens int
	}{
		{
			name:      "empty prompt",
			text:      "",
			minTokens: 0,
			maxTokens: 0,
		},
		{
			name:      "single word",
			text:      "review",
			minTokens: 1,
			maxTokens: 2,
		},
		{
			name:      "prose instruction",
			text:      "Review the following diff and flag correctness issues.",
			minTokens: 8,
			maxTokens: 14,
		},
		{
			name:      "diff hunk",
			text:      "@@ -1,3 +1,4 @@\n func main() {\n+\tlog.Println(\"start\")\n \tprintln(\"hello\")\n }\n",
			minTokens: 15,
			maxTokens: 40,
		},
		{
			name:      "large prompt",
			text:      strings.Repeat("This line did not change. ", 100),
			minTokens: 400,
			maxTokens: 800,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateTokens(tt.text)
			if got < tt.minTokens || got > tt.maxTokens {
				t.Errorf("EstimateTokens() = %d, want between %d and %d",
					got, tt.minTokens, tt.maxTokens)
			}
		})
	}
}

func TestEstimateTokensDeterministic(t *testing.T) {
	text := "diff --git a/main.go b/main.go\n+const retries = 3\n"

	first := EstimateTokens(text)
	for i := 0; i < 10; i++ {
		if got := EstimateTokens(text); got != first {
			t.Fatalf("EstimateTokens() inconsistent: got %d, want %d", got, first)
		}
	}
}

func TestEstimateTokensScalesWithDiffSize(t *testing.T) {
	hunk := "+ func handle() error {\n+     return nil\n+ }\n"

	small := EstimateTokens(strings.Repeat(hunk, 10))
	large := EstimateTokens(strings.Repeat(hunk, 1000))

	if large <= small {
		t.Fatalf("expected token count to grow with diff size: small=%d large=%d", small, large)
	}
	// Roughly linear scaling.
	if large < small*50 || large > small*200 {
		t.Errorf("token growth not roughly linear: small=%d large=%d", small, large)
	}
}
