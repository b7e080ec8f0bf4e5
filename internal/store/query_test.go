//go:build sqlite_fts5

package store

import "testing"

func TestListPaginatesAndSorts(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.InsertMany([]Memory{
		{Project: "proj", SessionID: "s", Category: CategoryNote, Content: "a", Score: 0.1},
		{Project: "proj", SessionID: "s", Category: CategoryNote, Content: "b", Score: 0.5},
		{Project: "proj", SessionID: "s", Category: CategoryNote, Content: "c", Score: 0.9},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	page1, err := s.List(ListQuery{Project: "proj", Sort: "score", Order: "desc", Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	if len(page1) != 2 || page1[0].Content != "c" {
		t.Fatalf("unexpected page 1: %+v", page1)
	}

	page2, err := s.List(ListQuery{Project: "proj", Sort: "score", Order: "desc", Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	if len(page2) != 1 || page2[0].Content != "a" {
		t.Fatalf("unexpected page 2: %+v", page2)
	}
}

func TestListClampsOversizedLimit(t *testing.T) {
	s := openTestStore(t)
	memories := make([]Memory, 0, 5)
	for i := 0; i < 5; i++ {
		memories = append(memories, Memory{Project: "proj", SessionID: "s", Category: CategoryNote, Content: "x", Score: 0.5})
	}
	if _, err := s.InsertMany(memories); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// A limit above 200 falls back to the default page size, not an error.
	results, err := s.List(ListQuery{Project: "proj", Limit: 10000})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("expected all 5 seeded rows, got %d", len(results))
	}
}

func TestListFiltersByCategoryAndSearch(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.InsertMany([]Memory{
		{Project: "proj", SessionID: "s", Category: CategoryDecision, Content: "chose sqlite for storage", Score: 0.5},
		{Project: "proj", SessionID: "s", Category: CategoryError, Content: "nil pointer crash", Score: 0.5},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	byCategory, err := s.List(ListQuery{Project: "proj", Category: CategoryError})
	if err != nil || len(byCategory) != 1 || byCategory[0].Category != CategoryError {
		t.Fatalf("unexpected category filter result: %+v, %v", byCategory, err)
	}

	bySearch, err := s.List(ListQuery{Project: "proj", Search: "sqlite"})
	if err != nil || len(bySearch) != 1 || bySearch[0].Content != "chose sqlite for storage" {
		t.Fatalf("unexpected search filter result: %+v, %v", bySearch, err)
	}
}

func TestGetMemoryMissingReturnsNilNotError(t *testing.T) {
	s := openTestStore(t)
	m, err := s.GetMemory(99999)
	if err != nil {
		t.Fatalf("get memory: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil for a missing id, got %+v", m)
	}
}

func TestDeleteMemoryAndDeleteMemories(t *testing.T) {
	s := openTestStore(t)
	id1, _ := s.InsertMemory(Memory{Project: "proj", SessionID: "s", Category: CategoryNote, Content: "one", Score: 0.5})
	id2, _ := s.InsertMemory(Memory{Project: "proj", SessionID: "s", Category: CategoryNote, Content: "two", Score: 0.5})
	id3, _ := s.InsertMemory(Memory{Project: "proj", SessionID: "s", Category: CategoryNote, Content: "three", Score: 0.5})

	if err := s.DeleteMemory(*id1); err != nil {
		t.Fatalf("delete memory: %v", err)
	}
	if m, _ := s.GetMemory(*id1); m != nil {
		t.Error("expected memory to be gone after DeleteMemory")
	}

	deleted, err := s.DeleteMemories([]int64{*id2, *id3})
	if err != nil {
		t.Fatalf("delete memories: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
}

func TestListProjectsReturnsDistinctSortedProjects(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.InsertMany([]Memory{
		{Project: "zeta", SessionID: "s", Category: CategoryNote, Content: "x", Score: 0.5},
		{Project: "alpha", SessionID: "s", Category: CategoryNote, Content: "y", Score: 0.5},
		{Project: "alpha", SessionID: "s", Category: CategoryNote, Content: "z", Score: 0.5},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	projects, err := s.ListProjects()
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 2 || projects[0] != "alpha" || projects[1] != "zeta" {
		t.Errorf("unexpected projects: %v", projects)
	}
}

func TestGetStatsAggregatesAcrossConcurrentQueries(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.InsertMany([]Memory{
		{Project: "proj", SessionID: "s", Category: CategoryNote, Content: "a", Score: 0.2},
		{Project: "proj", SessionID: "s", Category: CategoryDecision, Content: "b", Score: 0.8},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	stats, err := s.GetStats("proj")
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("total = %d, want 2", stats.Total)
	}
	if stats.CategoryCounts[CategoryNote] != 1 || stats.CategoryCounts[CategoryDecision] != 1 {
		t.Errorf("unexpected category counts: %v", stats.CategoryCounts)
	}
	if stats.AverageScore <= 0 {
		t.Errorf("expected a positive average score, got %v", stats.AverageScore)
	}
}
