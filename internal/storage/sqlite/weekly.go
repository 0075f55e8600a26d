package sqlite

import (
    "context"
)

type WeeklyTask struct {
    ID   int64
    Day  int
    Seq  int
    Text string
}

// AddWeeklyTask appends a recurring task to the weekday roster; the sequence
// number continues from the current maximum for that day.
func (d *DB) AddWeeklyTask(ctx context.Context, day int, text string) (int64, error) {
    var next int
    row := d.SQL.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM weekly_tasks WHERE day=?`, day)
    if err := row.Scan(&next); err != nil { return 0, err }
    res, err := d.SQL.ExecContext(ctx,
        `INSERT INTO weekly_tasks (day, seq, task_text) VALUES (?, ?, ?)`, day, next, text)
    if err != nil { return 0, err }
    return res.LastInsertId()
}

func (d *DB) ListWeeklyTasks(ctx context.Context, day int) ([]*WeeklyTask, error) {
    rows, err := d.SQL.QueryContext(ctx,
        `SELECT id, day, seq, task_text FROM weekly_tasks WHERE day=? ORDER BY seq`, day)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []*WeeklyTask
    for rows.Next() {
        t := &WeeklyTask{}
        if err := rows.Scan(&t.ID, &t.Day, &t.Seq, &t.Text); err != nil { return nil, err }
        out = append(out, t)
    }
    return out, rows.Err()
}

func (d *DB) DeleteWeeklyTask(ctx context.Context, id int64) error {
    var day, seq int
    row := d.SQL.QueryRowContext(ctx, `SELECT day, seq FROM weekly_tasks WHERE id=?`, id)
    if err := row.Scan(&day, &seq); err != nil { return ErrNotFound }
    if _, err := d.SQL.ExecContext(ctx, `DELETE FROM weekly_tasks WHERE id=?`, id); err != nil {
        return err
    }
    return d.ClearSubStatuses(ctx, WeeklyTaskKey(day, seq))
}
