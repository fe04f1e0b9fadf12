package history

import (
	"testing"
)

func TestLogAppendTurnsReset(t *testing.T) {
	h := NewLog("Hello! Ready to polish your profile?")

	if h.Len() != 1 {
		t.Fatalf("seed turn missing: %+v", h.Turns())
	}
	if idx := h.AppendUser("hello"); idx != 1 {
		t.Fatalf("unexpected user index %d", idx)
	}
	if idx := h.AppendAssistant("hi"); idx != 2 {
		t.Fatalf("unexpected assistant index %d", idx)
	}

	turns := h.Turns()
	if len(turns) != 3 {
		t.Fatalf("want 3 turns, got %d", len(turns))
	}
	if turns[1].Role != RoleUser || turns[1].Content != "hello" {
		t.Fatalf("unexpected turn 1: %+v", turns[1])
	}
	if turns[2].Role != RoleAssistant || turns[2].Content != "hi" {
		t.Fatalf("unexpected turn 2: %+v", turns[2])
	}

	// Ensure copy semantics (modifying returned slice does not affect internal state)
	turns[1] = Turn{Role: RoleUser, Content: "mutated"}
	if h.Turns()[1].Content != "hello" {
		t.Fatalf("internal state mutated via returned slice")
	}

	last, ok := h.Last()
	if !ok || last.Content != "hi" || h.LastIndex() != 2 {
		t.Fatalf("unexpected last turn: %+v", last)
	}

	h.Reset()
	turns = h.Turns()
	if len(turns) != 1 || turns[0].Role != RoleAssistant || turns[0].Content != "Hello! Ready to polish your profile?" {
		t.Fatalf("reset should leave only the seed turn: %+v", turns)
	}
}

func TestLogWithoutSeed(t *testing.T) {
	h := NewLog("")
	if h.Len() != 0 || h.LastIndex() != -1 {
		t.Fatalf("expected empty log")
	}
	if _, ok := h.Last(); ok {
		t.Fatalf("Last on empty log must report false")
	}
}
