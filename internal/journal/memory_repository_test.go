package journal

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryRepositoryRecentNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := repo.Record(ctx, Entry{
			ID:        fmt.Sprintf("id-%d", i),
			Address:   "addr",
			Outcome:   OutcomeOK,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	got, err := repo.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries got %d", len(got))
	}
	if got[0].ID != "id-4" || got[2].ID != "id-2" {
		t.Fatalf("unexpected order %s..%s", got[0].ID, got[2].ID)
	}
}

func TestMemoryRepositoryRequiresID(t *testing.T) {
	if err := NewMemoryRepository().Record(context.Background(), Entry{}); err == nil {
		t.Fatalf("expected error for entry without id")
	}
}

func TestMemoryRepositoryRetention(t *testing.T) {
	repo := &memoryRepository{retention: 2}
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := repo.Record(ctx, Entry{ID: fmt.Sprintf("id-%d", i)}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	got, _ := repo.Recent(ctx, 10)
	if len(got) != 2 || got[0].ID != "id-3" || got[1].ID != "id-2" {
		t.Fatalf("expected only the two newest entries, got %+v", got)
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{-1: defaultRecentLimit, 0: defaultRecentLimit, 5: 5, maxRecentLimit + 1: maxRecentLimit}
	for in, want := range cases {
		if got := ClampLimit(in); got != want {
			t.Fatalf("ClampLimit(%d) = %d want %d", in, got, want)
		}
	}
}
