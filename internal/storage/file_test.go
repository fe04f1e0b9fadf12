package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileRecorder_AppendAndLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "journal", "events.jsonl")
	rec, err := NewFileRecorder(p)
	if err != nil {
		t.Fatalf("init recorder: %v", err)
	}

	ev1 := Event{Timestamp: time.Unix(1, 0).UTC(), Session: "1", Kind: KindTurn, UserMessage: "hi", AssistantResponse: "hello"}
	ev2 := Event{Timestamp: time.Unix(2, 0).UTC(), Session: "1", Kind: KindAction, ActionID: "a", Verb: "DELETE_REPO", Status: "failed", Error: "Not Found"}
	if err := rec.Append(ev1); err != nil {
		t.Fatalf("append1: %v", err)
	}
	if err := rec.Append(ev2); err != nil {
		t.Fatalf("append2: %v", err)
	}

	events, err := rec.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("want 2, got %d", len(events))
	}
	if events[0].UserMessage != "hi" || events[0].Kind != KindTurn {
		t.Fatalf("turn event mismatch: %+v", events[0])
	}
	if events[1].Verb != "DELETE_REPO" || events[1].Error != "Not Found" || !events[1].Timestamp.Equal(ev2.Timestamp) {
		t.Fatalf("action event mismatch: %+v", events[1])
	}

	st, err := os.Stat(p)
	if err != nil || st.Size() == 0 {
		t.Fatalf("file not written")
	}

	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := rec.Append(ev1); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("append after close: want os.ErrClosed, got %v", err)
	}
	if events, _ := rec.Load(); len(events) != 2 {
		t.Fatalf("load after close: want 2, got %d", len(events))
	}
}

func TestFileRecorder_SkipsCorruptLines(t *testing.T) {
	p := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(p, []byte("{not json}\n\n{\"session\":\"7\",\"kind\":\"turn\"}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec, err := NewFileRecorder(p)
	if err != nil {
		t.Fatalf("init recorder: %v", err)
	}
	events, err := rec.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 1 || events[0].Session != "7" {
		t.Fatalf("want the one valid event, got %+v", events)
	}
}
