package sqlite

import (
    "context"
    "database/sql"
    "fmt"
    "strings"
    "time"
)

const (
    TaskActive     = "active"
    TaskInProgress = "in_progress"
    TaskCompleted  = "completed"
)

type Task struct {
    ID           int64
    Title        string
    Description  sql.NullString
    PhotoFileID  sql.NullString
    DeadlineText sql.NullString
    DeadlineAt   sql.NullTime
    Assignee     string
    Creator      string
    Status       string
    CreatedAt    time.Time
    CompletedAt  sql.NullTime
    ResultText   sql.NullString
    ResultFileID sql.NullString
}

// TaskPatch carries only the fields a write wants to touch. Nil means
// "leave as is"; the Clear flags reset the nullable columns.
type TaskPatch struct {
    Title            *string
    Description      *string
    DeadlineText     *string
    DeadlineAt       *time.Time
    ClearDeadlineAt  bool
    Assignee         *string
    Status           *string
    CompletedAt      *time.Time
    ClearCompletedAt bool
    ResultText       *string
    ResultFileID     *string
}

// CustomTaskKey is the sub-status key of an ad-hoc task.
func CustomTaskKey(id int64) string { return fmt.Sprintf("c%d", id) }

// WeeklyTaskKey is the sub-status key of a recurring task slot.
func WeeklyTaskKey(day, seq int) string { return fmt.Sprintf("w%d_%d", day, seq) }

func (d *DB) CreateTask(ctx context.Context, t *Task) (int64, error) {
    now := Now()
    res, err := d.SQL.ExecContext(ctx, `
        INSERT INTO tasks (title, description, photo_file_id, deadline_text, deadline_at, assignee, creator, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, 'active', ?)
    `, t.Title, t.Description, t.PhotoFileID, t.DeadlineText, t.DeadlineAt, t.Assignee, t.Creator, now)
    if err != nil { return 0, err }
    return res.LastInsertId()
}

func (d *DB) GetTask(ctx context.Context, id int64) (*Task, error) {
    row := d.SQL.QueryRowContext(ctx, `
        SELECT id, title, description, photo_file_id, deadline_text, deadline_at, assignee, creator, status,
               created_at, completed_at, result_text, result_file_id
        FROM tasks WHERE id=?
    `, id)
    t := &Task{}
    err := row.Scan(&t.ID, &t.Title, &t.Description, &t.PhotoFileID, &t.DeadlineText, &t.DeadlineAt, &t.Assignee,
        &t.Creator, &t.Status, &t.CreatedAt, &t.CompletedAt, &t.ResultText, &t.ResultFileID)
    if err == sql.ErrNoRows { return nil, ErrNotFound }
    if err != nil { return nil, err }
    return t, nil
}

func (d *DB) UpdateTask(ctx context.Context, id int64, p TaskPatch) error {
    var set []string
    var args []any
    add := func(expr string, v any) { set = append(set, expr); args = append(args, v) }

    if p.Title != nil { add("title=?", *p.Title) }
    if p.Description != nil { add("description=?", nullIfEmpty(*p.Description)) }
    if p.DeadlineText != nil { add("deadline_text=?", nullIfEmpty(*p.DeadlineText)) }
    if p.DeadlineAt != nil { add("deadline_at=?", *p.DeadlineAt) }
    if p.ClearDeadlineAt { set = append(set, "deadline_at=NULL") }
    if p.Assignee != nil { add("assignee=?", *p.Assignee) }
    if p.Status != nil { add("status=?", *p.Status) }
    if p.CompletedAt != nil { add("completed_at=?", *p.CompletedAt) }
    if p.ClearCompletedAt { set = append(set, "completed_at=NULL") }
    if p.ResultText != nil { add("result_text=?", nullIfEmpty(*p.ResultText)) }
    if p.ResultFileID != nil { add("result_file_id=?", nullIfEmpty(*p.ResultFileID)) }
    if len(set) == 0 { return nil }

    args = append(args, id)
    res, err := d.SQL.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(set, ", ")+` WHERE id=?`, args...)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    return nil
}

func (d *DB) DeleteTask(ctx context.Context, id int64) error {
    res, err := d.SQL.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
    _, err = d.SQL.ExecContext(ctx, `DELETE FROM task_sub_status WHERE task_key=?`, CustomTaskKey(id))
    return err
}

// ListTasks returns tasks filtered by lifecycle status; empty status means all.
func (d *DB) ListTasks(ctx context.Context, status string) ([]*Task, error) {
    q := `
        SELECT id, title, description, photo_file_id, deadline_text, deadline_at, assignee, creator, status,
               created_at, completed_at, result_text, result_file_id
        FROM tasks`
    var args []any
    if status != "" {
        q += ` WHERE status=?`
        args = append(args, status)
    }
    q += ` ORDER BY created_at DESC`
    rows, err := d.SQL.QueryContext(ctx, q, args...)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []*Task
    for rows.Next() {
        t := &Task{}
        if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.PhotoFileID, &t.DeadlineText, &t.DeadlineAt, &t.Assignee,
            &t.Creator, &t.Status, &t.CreatedAt, &t.CompletedAt, &t.ResultText, &t.ResultFileID); err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    return out, rows.Err()
}

// ListOpenTasks returns active and in-progress tasks, newest first.
func (d *DB) ListOpenTasks(ctx context.Context) ([]*Task, error) {
    rows, err := d.SQL.QueryContext(ctx, `
        SELECT id, title, description, photo_file_id, deadline_text, deadline_at, assignee, creator, status,
               created_at, completed_at, result_text, result_file_id
        FROM tasks WHERE status != 'completed' ORDER BY created_at DESC
    `)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []*Task
    for rows.Next() {
        t := &Task{}
        if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.PhotoFileID, &t.DeadlineText, &t.DeadlineAt, &t.Assignee,
            &t.Creator, &t.Status, &t.CreatedAt, &t.CompletedAt, &t.ResultText, &t.ResultFileID); err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    return out, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
    return sql.NullString{String: s, Valid: s != ""}
}
