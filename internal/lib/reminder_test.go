package lib

import (
    "context"
    "strings"
    "testing"
    "time"

    "github.com/avlysenko/teamtasks/internal/storage/sqlite"
)

func newTestWorker(t *testing.T, at time.Time) (*ReminderWorker, *sqlite.DB, *[]string) {
    t.Helper()
    db := newTestDB(t)
    var sent []string
    rw := NewReminderWorker(db, time.Local, fixedClock(at), func(text string) { sent = append(sent, text) })
    return rw, db, &sent
}

func addDeadlineTask(t *testing.T, db *sqlite.DB, title string, at time.Time) {
    t.Helper()
    _, err := db.CreateTask(context.Background(), &sqlite.Task{
        Title: title, Assignee: "AG", Creator: "KA",
        DeadlineText: nullString(at.Format("02.01.2006 15:04")),
        DeadlineAt:   nullTime(at),
    })
    if err != nil {
        t.Fatalf("create: %v", err)
    }
}

func TestReminderRelativeWindows(t *testing.T) {
    cases := []struct {
        hoursLeft time.Duration
        want      string
    }{
        {4 * time.Hour, "~4 часа"},
        {2 * time.Hour, "~2 часа"},
        {1 * time.Hour, "~1 час"},
        {20 * time.Minute, "~30 минут"},
    }
    for _, c := range cases {
        now := time.Date(2026, 6, 10, 10, 30, 0, 0, time.Local)
        rw, db, sent := newTestWorker(t, now)
        addDeadlineTask(t, db, "Отчет", now.Add(c.hoursLeft))
        if err := rw.Tick(context.Background()); err != nil {
            t.Fatalf("tick: %v", err)
        }
        if len(*sent) != 1 || !strings.Contains((*sent)[0], c.want) {
            t.Fatalf("left=%v: sent %v, want %q", c.hoursLeft, *sent, c.want)
        }
    }
}

func TestReminderRelativeWindowUpperBounds(t *testing.T) {
    // More than 4h out nothing fires yet; the 4h nudge starts at 4.0h.
    now := time.Date(2026, 6, 10, 10, 30, 0, 0, time.Local)
    rw, db, sent := newTestWorker(t, now)
    addDeadlineTask(t, db, "Отчет", now.Add(4*time.Hour+15*time.Minute))

    if err := rw.Tick(context.Background()); err != nil {
        t.Fatalf("tick: %v", err)
    }
    if len(*sent) != 0 {
        t.Fatalf("fired above the 4h bound: %v", *sent)
    }
}

func TestReminderDedup(t *testing.T) {
    now := time.Date(2026, 6, 10, 10, 30, 0, 0, time.Local)
    rw, db, sent := newTestWorker(t, now)
    addDeadlineTask(t, db, "Отчет", now.Add(2*time.Hour))

    ctx := context.Background()
    rw.Tick(ctx)
    rw.Tick(ctx)
    rw.Clock = fixedClock(now.Add(10 * time.Minute)) // still inside the 2h window
    rw.Tick(ctx)
    if len(*sent) != 1 {
        t.Fatalf("sent %d messages, want 1", len(*sent))
    }
}

func TestReminderHourCheckpoint(t *testing.T) {
    now := time.Date(2026, 6, 10, 12, 2, 0, 0, time.Local)
    rw, db, sent := newTestWorker(t, now)
    // Deadline late in the day so no relative window overlaps 12:02.
    addDeadlineTask(t, db, "Отчет", time.Date(2026, 6, 10, 23, 0, 0, 0, time.Local))

    rw.Tick(context.Background())
    if len(*sent) != 1 || !strings.Contains((*sent)[0], "Не забудьте") {
        t.Fatalf("sent %v", *sent)
    }

    // Outside the minute window nothing fires.
    rw2, db2, sent2 := newTestWorker(t, time.Date(2026, 6, 10, 12, 30, 0, 0, time.Local))
    addDeadlineTask(t, db2, "Отчет", time.Date(2026, 6, 10, 23, 0, 0, 0, time.Local))
    rw2.Tick(context.Background())
    if len(*sent2) != 0 {
        t.Fatalf("fired outside the window: %v", *sent2)
    }
}

func TestReminderFutureDayDaily(t *testing.T) {
    now := time.Date(2026, 6, 10, 9, 1, 0, 0, time.Local)
    rw, db, sent := newTestWorker(t, now)
    addDeadlineTask(t, db, "Отчет", time.Date(2026, 6, 13, 18, 0, 0, 0, time.Local))

    ctx := context.Background()
    rw.Tick(ctx)
    rw.Tick(ctx)
    if len(*sent) != 1 || !strings.Contains((*sent)[0], "3 дня") {
        t.Fatalf("sent %v", *sent)
    }

    // The next morning fires again under a fresh day key.
    rw.Clock = fixedClock(now.Add(24 * time.Hour))
    rw.Tick(ctx)
    if len(*sent) != 2 {
        t.Fatalf("next-day reminder missing: %v", *sent)
    }
}

func TestReminderSkipsPastAndLabelDeadlines(t *testing.T) {
    now := time.Date(2026, 6, 10, 12, 1, 0, 0, time.Local)
    rw, db, sent := newTestWorker(t, now)
    addDeadlineTask(t, db, "Просроченная", now.Add(-time.Hour))
    if _, err := db.CreateTask(context.Background(), &sqlite.Task{
        Title: "Без срока", Assignee: "AG", Creator: "KA",
        DeadlineText: nullString("до конца недели"),
    }); err != nil {
        t.Fatalf("create: %v", err)
    }

    rw.Tick(context.Background())
    if len(*sent) != 0 {
        t.Fatalf("fired for past/label deadlines: %v", *sent)
    }
}

func TestDeclineDays(t *testing.T) {
    cases := map[int]string{1: "1 день", 2: "2 дня", 4: "4 дня", 5: "5 дней", 11: "11 дней"}
    for n, want := range cases {
        if got := declineDays(n); got != want {
            t.Errorf("%d: got %q, want %q", n, got, want)
        }
    }
}
