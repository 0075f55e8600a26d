package sqlite

import (
    "context"
    "database/sql"
)

const (
    PresenceHere   = "here"
    PresenceLate   = "late"
    PresenceAbsent = "absent"
)

type Presence struct {
    Participant  string
    Date         string
    Status       string
    Time         string
    DelayMinutes int
    Reason       sql.NullString
}

// SavePresence upserts the day's attendance mark; repeated taps overwrite
// the previous one for the same participant and date.
func (d *DB) SavePresence(ctx context.Context, p *Presence) error {
    _, err := d.SQL.ExecContext(ctx, `
        INSERT INTO presence (participant, date, status, time, delay_minutes, reason)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(participant, date) DO UPDATE SET
            status=excluded.status, time=excluded.time,
            delay_minutes=excluded.delay_minutes, reason=excluded.reason
    `, p.Participant, p.Date, p.Status, p.Time, p.DelayMinutes, p.Reason)
    return err
}

func (d *DB) GetPresence(ctx context.Context, participant, date string) (*Presence, error) {
    row := d.SQL.QueryRowContext(ctx, `
        SELECT participant, date, status, time, delay_minutes, reason
        FROM presence WHERE participant=? AND date=?
    `, participant, date)
    p := &Presence{}
    if err := row.Scan(&p.Participant, &p.Date, &p.Status, &p.Time, &p.DelayMinutes, &p.Reason); err != nil {
        if err == sql.ErrNoRows { return nil, ErrNotFound }
        return nil, err
    }
    return p, nil
}

func (d *DB) ListPresence(ctx context.Context, date string) ([]*Presence, error) {
    rows, err := d.SQL.QueryContext(ctx, `
        SELECT participant, date, status, time, delay_minutes, reason
        FROM presence WHERE date=? ORDER BY participant
    `, date)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []*Presence
    for rows.Next() {
        p := &Presence{}
        if err := rows.Scan(&p.Participant, &p.Date, &p.Status, &p.Time, &p.DelayMinutes, &p.Reason); err != nil {
            return nil, err
        }
        out = append(out, p)
    }
    return out, rows.Err()
}
