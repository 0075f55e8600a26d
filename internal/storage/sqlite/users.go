package sqlite

import (
    "context"
    "database/sql"
)

type User struct {
    Username string
    TgID     sql.NullInt64
    Initials string
    FullName string
}

// SaveUserID remembers the Telegram id of a roster member the first time
// they interact with the bot; personal reminders need it.
func (d *DB) SaveUserID(ctx context.Context, username string, tgID int64) error {
    _, err := d.SQL.ExecContext(ctx,
        `UPDATE users SET tg_id=? WHERE username=?`, tgID, username)
    return err
}

func (d *DB) GetUserByUsername(ctx context.Context, username string) (*User, error) {
    row := d.SQL.QueryRowContext(ctx,
        `SELECT username, tg_id, initials, full_name FROM users WHERE username=?`, username)
    u := &User{}
    if err := row.Scan(&u.Username, &u.TgID, &u.Initials, &u.FullName); err != nil {
        if err == sql.ErrNoRows { return nil, ErrNotFound }
        return nil, err
    }
    return u, nil
}

func (d *DB) GetUserByInitials(ctx context.Context, initials string) (*User, error) {
    row := d.SQL.QueryRowContext(ctx,
        `SELECT username, tg_id, initials, full_name FROM users WHERE initials=?`, initials)
    u := &User{}
    if err := row.Scan(&u.Username, &u.TgID, &u.Initials, &u.FullName); err != nil {
        if err == sql.ErrNoRows { return nil, ErrNotFound }
        return nil, err
    }
    return u, nil
}

func (d *DB) ListUsers(ctx context.Context) ([]*User, error) {
    rows, err := d.SQL.QueryContext(ctx,
        `SELECT username, tg_id, initials, full_name FROM users ORDER BY initials`)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []*User
    for rows.Next() {
        u := &User{}
        if err := rows.Scan(&u.Username, &u.TgID, &u.Initials, &u.FullName); err != nil { return nil, err }
        out = append(out, u)
    }
    return out, rows.Err()
}
