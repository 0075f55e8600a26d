package sqlite

import (
    "context"
    "database/sql"
    "errors"
    "time"

    _ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups when the referenced row does not exist.
var ErrNotFound = errors.New("not found")

type DB struct {
    SQL *sql.DB
}

func Open(path string) (*DB, error) {
    dsn := path + "?_pragma=busy_timeout(5000)"
    s, err := sql.Open("sqlite", dsn)
    if err != nil { return nil, err }
    s.SetMaxOpenConns(1)
    if err := migrate(context.Background(), s); err != nil {
        return nil, err
    }
    return &DB{SQL: s}, nil
}

func (d *DB) Close() error { return d.SQL.Close() }

func migrate(ctx context.Context, db *sql.DB) error {
    stmts := []string{
        `PRAGMA foreign_keys = ON;`,
        `CREATE TABLE IF NOT EXISTS users (
            username TEXT PRIMARY KEY,
            tg_id INTEGER,
            initials TEXT UNIQUE NOT NULL,
            full_name TEXT NOT NULL DEFAULT ''
        );`,
        `CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            description TEXT,
            photo_file_id TEXT,
            deadline_text TEXT,
            deadline_at DATETIME,
            assignee TEXT NOT NULL,
            creator TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'active',
            created_at DATETIME NOT NULL,
            completed_at DATETIME,
            result_text TEXT,
            result_file_id TEXT
        );`,
        `CREATE TABLE IF NOT EXISTS task_sub_status (
            task_key TEXT NOT NULL,
            participant TEXT NOT NULL,
            status TEXT NOT NULL,
            updated_at DATETIME NOT NULL,
            PRIMARY KEY (task_key, participant)
        );`,
        `CREATE TABLE IF NOT EXISTS weekly_tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            day INTEGER NOT NULL,
            seq INTEGER NOT NULL,
            task_text TEXT NOT NULL,
            UNIQUE (day, seq)
        );`,
        `CREATE TABLE IF NOT EXISTS presence (
            participant TEXT NOT NULL,
            date TEXT NOT NULL,
            status TEXT NOT NULL,
            time TEXT NOT NULL DEFAULT '',
            delay_minutes INTEGER NOT NULL DEFAULT 0,
            reason TEXT,
            PRIMARY KEY (participant, date)
        );`,
        `INSERT OR IGNORE INTO users (username, tg_id, initials, full_name) VALUES
            ('alex301182', NULL, 'AG', 'Lysenko Alexander'),
            ('Korudirp',   NULL, 'KA', 'Ruslan Cherenkov');`,
    }
    for _, s := range stmts {
        if _, err := db.ExecContext(ctx, s); err != nil { return err }
    }
    return nil
}

func Now() time.Time {
    return time.Now().In(time.Local)
}
