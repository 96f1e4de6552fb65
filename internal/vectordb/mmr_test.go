package vectordb

import "testing"

func TestMMR(t *testing.T) {
	query := []float32{1, 0, 0}
	candidates := [][]float32{
		{1, 0.05, 0},
		{1, 0.06, 0},
		{0.6, 0, 0.8},
	}

	tests := []struct {
		name   string
		k      int
		lambda float32
		want   []int
	}{
		{"pure relevance", 3, 1, []int{0, 1, 2}},
		{"balanced prefers diversity", 2, 0.5, []int{0, 2}},
		{"k larger than pool", 10, 0.5, []int{0, 2, 1}},
		{"zero k", 0, 0.5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MMR(query, candidates, tt.k, tt.lambda)
			if len(got) != len(tt.want) {
				t.Fatalf("MMR() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("MMR() = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestMMR_NoCandidates(t *testing.T) {
	if got := MMR([]float32{1}, nil, 3, 0.5); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestCosine(t *testing.T) {
	if c := cosine([]float32{1, 0}, []float32{0, 1}); c != 0 {
		t.Errorf("orthogonal cosine = %v", c)
	}
	if c := cosine([]float32{2, 0}, []float32{1, 0}); c < 0.9999 {
		t.Errorf("parallel cosine = %v", c)
	}
	if c := cosine([]float32{1}, []float32{1, 0}); c != 0 {
		t.Errorf("length mismatch should yield 0, got %v", c)
	}
}
