package order

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateOrderNo_Format(t *testing.T) {
	now := time.Date(2025, 6, 1, 14, 30, 45, 0, time.UTC)

	no, err := generateOrderNo(now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if !strings.HasPrefix(no, "TX20250601143045") {
		t.Fatalf("unexpected prefix: %q", no)
	}
	if len(no) != 20 {
		t.Fatalf("length = %d, want 20", len(no))
	}
	for _, r := range no[16:] {
		if !strings.ContainsRune(orderNoAlphabet, r) {
			t.Fatalf("suffix char %q outside alphabet", r)
		}
	}
}

func TestGenerateOrderNo_SuffixVaries(t *testing.T) {
	now := time.Now()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		no, err := generateOrderNo(now)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		seen[no] = true
	}

	// Same timestamp, random suffix: collisions over 50 draws from 36^4
	// possibilities would be suspicious.
	if len(seen) < 45 {
		t.Fatalf("suffix barely varies: %d distinct of 50", len(seen))
	}
}

func BenchmarkGenerateOrderNo(b *testing.B) {
	now := time.Now()
	for i := 0; i < b.N; i++ {
		_, _ = generateOrderNo(now)
	}
}
