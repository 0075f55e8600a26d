package lib

import (
    "context"
    "sync"
    "time"

    "github.com/avlysenko/teamtasks/internal/storage/sqlite"
)

// SubStatus is the per-participant completion mark. Exactly three values
// exist and Toggle walks them in a fixed cycle.
type SubStatus string

const (
    SubUnset   SubStatus = "unset"
    SubPending SubStatus = "pending"
    SubDone    SubStatus = "done"
)

func (s SubStatus) Next() SubStatus {
    switch s {
    case SubUnset:
        return SubPending
    case SubPending:
        return SubDone
    default:
        return SubUnset
    }
}

func (s SubStatus) Emoji() string {
    switch s {
    case SubPending:
        return "⏳"
    case SubDone:
        return "✅"
    default:
        return "⚪"
    }
}

type AggregateStatus string

const (
    AggUnset   AggregateStatus = "unset"
    AggPending AggregateStatus = "pending"
    AggDone    AggregateStatus = "done"
)

// Aggregate folds per-participant marks into the task-level status: done iff
// every required participant is done, unset iff nobody moved, else pending.
func Aggregate(subs map[string]SubStatus, required []string) AggregateStatus {
    allDone := len(required) > 0
    for _, p := range required {
        if subs[p] != SubDone { allDone = false; break }
    }
    if allDone { return AggDone }
    for _, s := range subs {
        if s != SubUnset && s != "" { return AggPending }
    }
    return AggUnset
}

// Tracker is the status toggle engine. Toggle is its only mutation
// primitive; the mutex makes the read-modify-write atomic end to end, which
// together with the single-connection store keeps concurrent taps from
// different participants safe.
type Tracker struct {
    mu     sync.Mutex
    db     *sqlite.DB
    roster []string
    clock  func() time.Time
}

func NewTracker(db *sqlite.DB, roster []string, clock func() time.Time) *Tracker {
    if clock == nil { clock = sqlite.Now }
    return &Tracker{db: db, roster: roster, clock: clock}
}

func (t *Tracker) Roster() []string { return t.roster }

func (t *Tracker) inRoster(participant string) bool {
    for _, p := range t.roster {
        if p == participant { return true }
    }
    return false
}

// RequiredFor resolves the participant set a task needs for completion. The
// "all" sentinel expands to the active roster at evaluation time.
func (t *Tracker) RequiredFor(task *sqlite.Task) []string {
    if task.Assignee == "all" { return t.roster }
    return []string{task.Assignee}
}

// Toggle advances one participant's mark along the cycle and persists it.
// Unknown participants are rejected before any read or write happens.
func (t *Tracker) Toggle(ctx context.Context, taskKey, participant string) (SubStatus, error) {
    if !t.inRoster(participant) { return SubUnset, ErrUnknownParticipant }
    t.mu.Lock()
    defer t.mu.Unlock()
    return t.toggleLocked(ctx, taskKey, participant)
}

func (t *Tracker) toggleLocked(ctx context.Context, taskKey, participant string) (SubStatus, error) {
    raw, err := t.db.GetSubStatus(ctx, taskKey, participant)
    if err != nil { return SubUnset, err }
    cur := SubUnset
    if raw != "" { cur = SubStatus(raw) }
    next := cur.Next()
    if err := t.db.SetSubStatus(ctx, taskKey, participant, string(next)); err != nil {
        return SubUnset, err
    }
    return next, nil
}

// Complete drives a participant's mark to done through the toggle cycle.
// Dialogue completion paths use this instead of writing the row directly.
func (t *Tracker) Complete(ctx context.Context, taskKey, participant string) error {
    if !t.inRoster(participant) { return ErrUnknownParticipant }
    t.mu.Lock()
    defer t.mu.Unlock()
    return t.completeLocked(ctx, taskKey, participant)
}

func (t *Tracker) completeLocked(ctx context.Context, taskKey, participant string) error {
    for i := 0; i < 3; i++ {
        raw, err := t.db.GetSubStatus(ctx, taskKey, participant)
        if err != nil { return err }
        if SubStatus(raw) == SubDone { return nil }
        if _, err := t.toggleLocked(ctx, taskKey, participant); err != nil { return err }
    }
    return nil
}

func (t *Tracker) Statuses(ctx context.Context, taskKey string) (map[string]SubStatus, error) {
    raw, err := t.db.ListSubStatuses(ctx, taskKey)
    if err != nil { return nil, err }
    out := make(map[string]SubStatus, len(raw))
    for p, s := range raw { out[p] = SubStatus(s) }
    return out, nil
}

// ToggleTask toggles a participant on an ad-hoc task and reconciles the
// task's lifecycle status with the fresh aggregate, all under one engine
// lock so concurrent taps cannot interleave between the two steps.
// completed_at is stamped when the aggregate first reaches done and cleared
// when it drops out.
func (t *Tracker) ToggleTask(ctx context.Context, task *sqlite.Task, participant string) (SubStatus, AggregateStatus, error) {
    if !t.inRoster(participant) { return SubUnset, AggUnset, ErrUnknownParticipant }
    t.mu.Lock()
    defer t.mu.Unlock()
    sub, err := t.toggleLocked(ctx, sqlite.CustomTaskKey(task.ID), participant)
    if err != nil { return SubUnset, AggUnset, err }
    agg, err := t.reconcileLocked(ctx, task)
    if err != nil { return sub, AggUnset, err }
    return sub, agg, nil
}

// CompleteTask drives the participant's mark to done and reconciles the
// task lifecycle in the same critical section.
func (t *Tracker) CompleteTask(ctx context.Context, task *sqlite.Task, participant string) (AggregateStatus, error) {
    if !t.inRoster(participant) { return AggUnset, ErrUnknownParticipant }
    t.mu.Lock()
    defer t.mu.Unlock()
    if err := t.completeLocked(ctx, sqlite.CustomTaskKey(task.ID), participant); err != nil {
        return AggUnset, err
    }
    return t.reconcileLocked(ctx, task)
}

// reconcileLocked re-reads the row instead of trusting the caller's copy:
// the clear/stamp decision must come from current state, not from a task
// struct fetched before the lock was taken.
func (t *Tracker) reconcileLocked(ctx context.Context, task *sqlite.Task) (AggregateStatus, error) {
    fresh, err := t.db.GetTask(ctx, task.ID)
    if err != nil { return AggUnset, err }
    subs, err := t.Statuses(ctx, sqlite.CustomTaskKey(fresh.ID))
    if err != nil { return AggUnset, err }
    agg := Aggregate(subs, t.RequiredFor(fresh))

    var patch sqlite.TaskPatch
    switch agg {
    case AggDone:
        if fresh.Status != sqlite.TaskCompleted || !fresh.CompletedAt.Valid {
            st := sqlite.TaskCompleted
            now := t.clock()
            patch.Status = &st
            patch.CompletedAt = &now
        }
    case AggPending:
        st := sqlite.TaskInProgress
        if fresh.Status != st || fresh.CompletedAt.Valid {
            patch.Status = &st
            patch.ClearCompletedAt = true
        }
    default:
        st := sqlite.TaskActive
        if fresh.Status != st || fresh.CompletedAt.Valid {
            patch.Status = &st
            patch.ClearCompletedAt = true
        }
    }
    if patch.Status != nil {
        if err := t.db.UpdateTask(ctx, fresh.ID, patch); err != nil { return agg, err }
        fresh.Status = *patch.Status
    }
    task.Status = fresh.Status
    return agg, nil
}
