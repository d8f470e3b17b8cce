package session

import (
	"context"
	"testing"
)

func TestRegistry_BeginSupersedes(t *testing.T) {
	r := NewRegistry()

	ctx1, tok1 := r.Begin(context.Background(), ResourceProcess, "b1")
	_, tok2 := r.Begin(context.Background(), ResourceProcess, "b1")

	if ctx1.Err() == nil {
		t.Error("superseded operation's context should be cancelled")
	}
	if tok1.Commit() {
		t.Error("superseded token must not commit")
	}
	if !tok2.Commit() {
		t.Error("current token must commit")
	}
}

func TestRegistry_DistinctKeysCoexist(t *testing.T) {
	r := NewRegistry()

	ctxA, tokA := r.Begin(context.Background(), ResourcePartTree, "b1")
	ctxB, tokB := r.Begin(context.Background(), ResourceProcess, "b1")
	ctxC, tokC := r.Begin(context.Background(), ResourcePartTree, "b2")

	for i, ctx := range []context.Context{ctxA, ctxB, ctxC} {
		if ctx.Err() != nil {
			t.Errorf("operation %d should still be live", i)
		}
	}
	for i, tok := range []Token{tokA, tokB, tokC} {
		if !tok.Commit() {
			t.Errorf("token %d should commit", i)
		}
	}
}

func TestRegistry_CancelBook(t *testing.T) {
	r := NewRegistry()

	ctx1, tok1 := r.Begin(context.Background(), ResourceProcess, "b1")
	ctx2, tok2 := r.Begin(context.Background(), ResourcePartTree, "b1")
	ctx3, tok3 := r.Begin(context.Background(), ResourceProcess, "b2")

	r.CancelBook("b1")

	if ctx1.Err() == nil || ctx2.Err() == nil {
		t.Error("b1 operations should be cancelled")
	}
	if ctx3.Err() != nil {
		t.Error("b2 operation should be unaffected")
	}
	if tok1.Commit() || tok2.Commit() {
		t.Error("cancelled operations must not commit")
	}
	if !tok3.Commit() {
		t.Error("b2 operation should still commit")
	}
}

func TestRegistry_CancelAll(t *testing.T) {
	r := NewRegistry()

	ctx1, _ := r.Begin(context.Background(), ResourceBooks, "")
	ctx2, _ := r.Begin(context.Background(), ResourceEntities, "b1")

	r.CancelAll()

	if ctx1.Err() == nil || ctx2.Err() == nil {
		t.Error("all operations should be cancelled")
	}
	if r.InFlight() != 0 {
		t.Errorf("expected no in-flight operations, got %d", r.InFlight())
	}
}

func TestSelection_SwitchCancelsPreviousBook(t *testing.T) {
	r := NewRegistry()
	s := NewSelection(r)

	s.Select("b1")
	pollCtx, pollTok := r.Begin(context.Background(), ResourceProcess, "b1")

	s.Select("b2")

	if pollCtx.Err() == nil {
		t.Error("previous book's poll should be cancelled on switch")
	}
	// The late poll response arrives now; it must be discarded.
	if pollTok.Commit() {
		t.Error("late response for the previous book must not commit")
	}

	if got, ok := s.Selected(); !ok || got != "b2" {
		t.Errorf("expected b2 selected, got %q (ok=%v)", got, ok)
	}
}

func TestSelection_Notifications(t *testing.T) {
	s := NewSelection(NewRegistry())

	var changes []string
	s.OnChange(func(bookID string) {
		changes = append(changes, bookID)
	})

	s.Select("b1")
	s.Select("b1") // no-op, no notification
	s.Select("b2")
	s.Clear()

	want := []string{"b1", "b2", ""}
	if len(changes) != len(want) {
		t.Fatalf("expected %d notifications, got %d: %v", len(want), len(changes), changes)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Errorf("notification %d: expected %q, got %q", i, want[i], changes[i])
		}
	}
}

func TestSelection_SelectedEmpty(t *testing.T) {
	s := NewSelection(NewRegistry())
	if _, ok := s.Selected(); ok {
		t.Error("fresh selection should be empty")
	}
}
