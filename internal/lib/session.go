package lib

import (
    "sync"
    "time"
)

// Session is the ephemeral per-(chat, participant) dialogue state. It lives
// only in memory: a restart drops it and the participant re-enters the flow.
type Session struct {
    ChatID    int64
    UserID    int64
    Flow      FlowKind
    State     State
    Draft     Draft
    UpdatedAt time.Time
}

type sessionKey struct {
    chatID int64
    userID int64
}

type SessionStore struct {
    mu    sync.Mutex
    m     map[sessionKey]*Session
    ttl   time.Duration
    clock func() time.Time
}

func NewSessionStore(ttl time.Duration, clock func() time.Time) *SessionStore {
    if clock == nil { clock = time.Now }
    return &SessionStore{m: map[sessionKey]*Session{}, ttl: ttl, clock: clock}
}

// Start opens a fresh session for the pair, overwriting any session already
// mid-flow. Restart-over-stacking is deliberate.
func (s *SessionStore) Start(chatID, userID int64, flow FlowKind, state State) *Session {
    s.mu.Lock()
    defer s.mu.Unlock()
    sess := &Session{ChatID: chatID, UserID: userID, Flow: flow, State: state, UpdatedAt: s.clock()}
    s.m[sessionKey{chatID, userID}] = sess
    return sess
}

func (s *SessionStore) Get(chatID, userID int64) (*Session, bool) {
    s.mu.Lock()
    defer s.mu.Unlock()
    sess, ok := s.m[sessionKey{chatID, userID}]
    return sess, ok
}

func (s *SessionStore) Touch(sess *Session, state State) {
    s.mu.Lock()
    defer s.mu.Unlock()
    sess.State = state
    sess.UpdatedAt = s.clock()
}

func (s *SessionStore) End(chatID, userID int64) {
    s.mu.Lock()
    defer s.mu.Unlock()
    delete(s.m, sessionKey{chatID, userID})
}

// Sweep drops sessions idle past the TTL and reports how many were removed.
func (s *SessionStore) Sweep() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    now := s.clock()
    var n int
    for k, sess := range s.m {
        if now.Sub(sess.UpdatedAt) > s.ttl {
            delete(s.m, k)
            n++
        }
    }
    return n
}

// StartSweeper garbage-collects abandoned sessions in the background.
func (s *SessionStore) StartSweeper(interval time.Duration, stop <-chan struct{}) {
    go func() {
        ticker := time.NewTicker(interval)
        defer ticker.Stop()
        for {
            select {
            case <-stop:
                return
            case <-ticker.C:
                s.Sweep()
            }
        }
    }()
}
