package llm

import "testing"

func TestStripFencesRemovesJSONFence(t *testing.T) {
	in := "```json\n{\"issues\": []}\n```"
	got := StripFences(in)
	want := "{\"issues\": []}"
	if got != want {
		t.Errorf("StripFences(%q) = %q, want %q", in, got, want)
	}
}

func TestStripFencesIdempotent(t *testing.T) {
	in := `{"issues": []}`
	if got := StripFences(StripFences(in)); got != in {
		t.Errorf("StripFences should be a no-op on unfenced input, got %q", got)
	}
}

func TestEstimateTokensRoughlyCharsOverFour(t *testing.T) {
	got := EstimateTokens("abcdefgh")
	if got != 2 {
		t.Errorf("EstimateTokens(8 chars) = %d, want 2", got)
	}
}

func TestShouldForceFinalize(t *testing.T) {
	if !ShouldForceFinalize(850, 1000) {
		t.Error("expected force-finalize at 85% of limit")
	}
	if ShouldForceFinalize(100, 1000) {
		t.Error("expected no force-finalize well under threshold")
	}
}
