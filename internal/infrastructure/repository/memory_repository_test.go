package repository

import (
	"context"
	"testing"

	"pagebot-core-console/internal/domain"
)

func TestMemoryCommandRepository_ListByPage(t *testing.T) {
	repo := NewMemoryCommandRepository(3)
	ctx := context.Background()

	for _, rec := range []*domain.CommandRecord{
		{CommandID: "a", PageID: "1"},
		{CommandID: "b", PageID: "2"},
		{CommandID: "c", PageID: "1"},
		{CommandID: "d", PageID: "1"},
	} {
		if err := repo.Record(ctx, rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
		if rec.ID == "" {
			t.Fatalf("record id not assigned")
		}
	}

	got, err := repo.ListByPage(ctx, "1", 0)
	if err != nil {
		t.Fatalf("ListByPage: %v", err)
	}
	// capacity 3 evicted "a"
	if len(got) != 2 || got[0].CommandID != "d" || got[1].CommandID != "c" {
		t.Fatalf("got %+v", got)
	}
	if got[0].OccurredAt.IsZero() {
		t.Error("OccurredAt should default to now")
	}

	limited, _ := repo.ListByPage(ctx, "1", 1)
	if len(limited) != 1 || limited[0].CommandID != "d" {
		t.Errorf("limited = %+v", limited)
	}

	empty, _ := repo.ListByPage(ctx, "9", 10)
	if empty == nil || len(empty) != 0 {
		t.Errorf("unknown page should give an empty slice, got %v", empty)
	}
}
