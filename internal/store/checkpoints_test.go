//go:build sqlite_fts5

package store

import "testing"

func TestCheckpointMissingReturnsNilNotError(t *testing.T) {
	s := openTestStore(t)
	cp, err := s.GetCheckpoint("sess", "/tmp/transcript.jsonl")
	if err != nil {
		t.Fatalf("get checkpoint: %v", err)
	}
	if cp != nil {
		t.Errorf("expected nil checkpoint, got %+v", cp)
	}
}

func TestCheckpointProgressesToLatestRow(t *testing.T) {
	s := openTestStore(t)
	path := "/tmp/transcript.jsonl"

	for _, line := range []int{10, 50, 100} {
		if err := s.SaveCheckpoint("sess", path, line); err != nil {
			t.Fatalf("save checkpoint %d: %v", line, err)
		}
	}

	cp, err := s.GetCheckpoint("sess", path)
	if err != nil || cp == nil {
		t.Fatalf("get checkpoint: %v, %v", cp, err)
	}
	if cp.LastLineNumber != 100 {
		t.Errorf("last_line_number = %d, want 100 (the most recent save)", cp.LastLineNumber)
	}
}

func TestCheckpointsAreIndependentPerTranscriptPath(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveCheckpoint("sess", "/a.jsonl", 30); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := s.SaveCheckpoint("sess", "/b.jsonl", 5); err != nil {
		t.Fatalf("save b: %v", err)
	}

	cpA, err := s.GetCheckpoint("sess", "/a.jsonl")
	if err != nil || cpA == nil || cpA.LastLineNumber != 30 {
		t.Fatalf("unexpected checkpoint for /a.jsonl: %+v, %v", cpA, err)
	}
	cpB, err := s.GetCheckpoint("sess", "/b.jsonl")
	if err != nil || cpB == nil || cpB.LastLineNumber != 5 {
		t.Fatalf("unexpected checkpoint for /b.jsonl: %+v, %v", cpB, err)
	}
}
