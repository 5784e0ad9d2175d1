package analyzer

import (
	"errors"
	"strings"
	"testing"
)

func TestComputeTLSH(t *testing.T) {
	content := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 5)

	hash, err := ComputeTLSH([]byte(content))
	if err != nil {
		t.Fatalf("Failed to compute hash: %v", err)
	}
	if hash.String() == "" {
		t.Error("Expected non-empty hash")
	}
}

func TestComputeTLSH_TooSmall(t *testing.T) {
	_, err := ComputeTLSH([]byte("too small"))
	if !errors.Is(err, ErrTooSmall) {
		t.Errorf("Expected ErrTooSmall, got %v", err)
	}
}

func TestTLSHHash_Distance(t *testing.T) {
	content := []byte(strings.Repeat("Test content for hash distance measurement. ", 10))

	hash1, _ := ComputeTLSH(content)
	hash2, _ := ComputeTLSH(content)

	if d := hash1.Distance(hash2); d != 0 {
		t.Errorf("Expected distance 0, got %d", d)
	}
}

func TestTLSHHash_DifferentContent(t *testing.T) {
	hash1, err := ComputeTLSH([]byte(strings.Repeat("The quick brown fox jumps over the lazy dog. ", 10)))
	if err != nil {
		t.Fatal(err)
	}
	hash2, err := ComputeTLSH([]byte(strings.Repeat("Lorem ipsum dolor sit amet consectetur adipiscing elit. ", 10)))
	if err != nil {
		t.Fatal(err)
	}
	if d := hash1.Distance(hash2); d < 50 {
		t.Errorf("Expected high distance for different content, got %d", d)
	}
}

func TestTLSHHash_NilHandling(t *testing.T) {
	var nilHash *TLSHHash

	if nilHash.String() != "" {
		t.Error("Expected empty string for nil hash")
	}

	hash, _ := ComputeTLSH([]byte(strings.Repeat("Test content. ", 10)))
	if d := hash.Distance(nilHash); d != -1 {
		t.Errorf("Expected -1 for nil comparison, got %d", d)
	}
}

func TestClassifyDistance(t *testing.T) {
	tests := []struct {
		distance int
		expected SimilarityLevel
	}{
		{0, LevelIdentical},
		{5, LevelNearlySame},
		{10, LevelNearlySame},
		{20, LevelVerySimilar},
		{30, LevelVerySimilar},
		{50, LevelSimilar},
		{100, LevelSimilar},
		{150, LevelSomewhatSimilar},
		{200, LevelSomewhatSimilar},
		{250, LevelDifferent},
	}

	for _, tt := range tests {
		if level := ClassifyDistance(tt.distance); level != tt.expected {
			t.Errorf("Distance %d: expected %s, got %s", tt.distance, tt.expected, level)
		}
	}
}

func BenchmarkComputeTLSH(b *testing.B) {
	content := []byte(strings.Repeat("Benchmark content for TLSH hash computation. ", 100))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ComputeTLSH(content)
	}
}
