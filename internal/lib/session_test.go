package lib

import (
    "testing"
    "time"
)

func TestSessionRestartOverwrites(t *testing.T) {
    s := NewSessionStore(time.Hour, nil)
    first := s.Start(1, 10, FlowCreate, StateCreateTitle)
    first.Draft.Title = "старый черновик"

    second := s.Start(1, 10, FlowEdit, StateEditTitle)
    got, ok := s.Get(1, 10)
    if !ok || got != second {
        t.Fatal("restart did not replace the session")
    }
    if got.Draft.Title != "" {
        t.Fatalf("stale draft survived: %q", got.Draft.Title)
    }
}

func TestSessionSweep(t *testing.T) {
    now := time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)
    clock := now
    s := NewSessionStore(time.Hour, func() time.Time { return clock })

    s.Start(1, 10, FlowCreate, StateCreateTitle)
    s.Start(1, 20, FlowComplete, StateCompleteResult)

    clock = now.Add(30 * time.Minute)
    s.Touch(mustGet(t, s, 1, 20), StateCompletePhoto)

    clock = now.Add(90 * time.Minute)
    if n := s.Sweep(); n != 1 {
        t.Fatalf("swept %d, want 1", n)
    }
    if _, ok := s.Get(1, 10); ok {
        t.Fatal("idle session survived the sweep")
    }
    if _, ok := s.Get(1, 20); !ok {
        t.Fatal("touched session was swept")
    }
}

func TestSessionEnd(t *testing.T) {
    s := NewSessionStore(time.Hour, nil)
    s.Start(1, 10, FlowAbsent, StateAbsentReason)
    s.End(1, 10)
    if _, ok := s.Get(1, 10); ok {
        t.Fatal("ended session still present")
    }
}

func mustGet(t *testing.T, s *SessionStore, chatID, userID int64) *Session {
    t.Helper()
    sess, ok := s.Get(chatID, userID)
    if !ok {
        t.Fatalf("session (%d,%d) missing", chatID, userID)
    }
    return sess
}
