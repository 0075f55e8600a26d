package sqlite

import (
    "context"
    "database/sql"
    "fmt"
)

// GetSubStatus returns the stored per-participant status for a task key.
// A missing row reads as the empty string without creating one; the record
// appears only on the first SetSubStatus.
func (d *DB) GetSubStatus(ctx context.Context, taskKey, participant string) (string, error) {
    row := d.SQL.QueryRowContext(ctx,
        `SELECT status FROM task_sub_status WHERE task_key=? AND participant=?`, taskKey, participant)
    var s string
    if err := row.Scan(&s); err != nil {
        if err == sql.ErrNoRows { return "", nil }
        return "", err
    }
    return s, nil
}

func (d *DB) SetSubStatus(ctx context.Context, taskKey, participant, status string) error {
    _, err := d.SQL.ExecContext(ctx, `
        INSERT INTO task_sub_status (task_key, participant, status, updated_at) VALUES (?, ?, ?, ?)
        ON CONFLICT(task_key, participant) DO UPDATE SET status=excluded.status, updated_at=excluded.updated_at
    `, taskKey, participant, status, Now())
    return err
}

func (d *DB) ListSubStatuses(ctx context.Context, taskKey string) (map[string]string, error) {
    rows, err := d.SQL.QueryContext(ctx,
        `SELECT participant, status FROM task_sub_status WHERE task_key=?`, taskKey)
    if err != nil { return nil, err }
    defer rows.Close()
    out := map[string]string{}
    for rows.Next() {
        var p, s string
        if err := rows.Scan(&p, &s); err != nil { return nil, err }
        out[p] = s
    }
    return out, rows.Err()
}

func (d *DB) ClearSubStatuses(ctx context.Context, taskKey string) error {
    _, err := d.SQL.ExecContext(ctx, `DELETE FROM task_sub_status WHERE task_key=?`, taskKey)
    return err
}

// ClearWeeklyStatuses drops every sub-status row of the given weekday, used
// by the morning reset of recurring tasks.
func (d *DB) ClearWeeklyStatuses(ctx context.Context, day int) error {
    pattern := fmt.Sprintf(`w%d\_%%`, day)
    _, err := d.SQL.ExecContext(ctx,
        `DELETE FROM task_sub_status WHERE task_key LIKE ? ESCAPE '\'`, pattern)
    return err
}
