package lib

import (
    "context"
    "fmt"
    "log"
    "sync"
    "time"

    "github.com/avlysenko/teamtasks/internal/storage/sqlite"
)

// Absolute-clock checkpoints checked on the deadline day, and the window
// (minutes past the hour) within which a tick may still fire them.
var deadlineDayHours = []int{9, 12, 14, 16}

const checkpointWindowMin = 5

// ReminderWorker re-evaluates open tasks on a fixed tick and posts deadline
// reminders to the group chat. Duplicate suppression is an in-memory ledger
// keyed (task id, checkpoint label); it is not persisted, so a restart
// inside a window may re-fire once.
type ReminderWorker struct {
    DB    *sqlite.DB
    TZ    *time.Location
    Clock func() time.Time
    Send  func(text string)
    Names map[string]string

    mu    sync.Mutex
    fired map[string]struct{}
    stop  chan struct{}
}

func NewReminderWorker(db *sqlite.DB, tz *time.Location, clock func() time.Time, send func(string)) *ReminderWorker {
    if clock == nil { clock = sqlite.Now }
    if tz == nil { tz = time.Local }
    return &ReminderWorker{
        DB: db, TZ: tz, Clock: clock, Send: send,
        Names: map[string]string{},
        fired: map[string]struct{}{},
    }
}

func (rw *ReminderWorker) Start(interval time.Duration) {
    if rw.stop != nil { close(rw.stop) }
    rw.stop = make(chan struct{})
    go func() {
        ticker := time.NewTicker(interval)
        defer ticker.Stop()
        for {
            select {
            case <-rw.stop:
                return
            case <-ticker.C:
                if err := rw.Tick(context.Background()); err != nil {
                    log.Println("reminder tick error:", err)
                }
            }
        }
    }()
}

func (rw *ReminderWorker) Stop() {
    if rw.stop != nil { close(rw.stop); rw.stop = nil }
}

// Tick walks every open task with a resolved future deadline and fires the
// checkpoints whose window contains now. Past-deadline tasks are skipped;
// escalation belongs to the evening summary, not here.
func (rw *ReminderWorker) Tick(ctx context.Context) error {
    tasks, err := rw.DB.ListOpenTasks(ctx)
    if err != nil { return err }
    now := rw.Clock().In(rw.TZ)

    for _, t := range tasks {
        if !t.DeadlineAt.Valid { continue }
        deadline := t.DeadlineAt.Time.In(rw.TZ)
        if deadline.Before(now) { continue }

        if sameDay(deadline, now) {
            for _, h := range deadlineDayHours {
                if now.Hour() == h && now.Minute() < checkpointWindowMin {
                    rw.fire(t, fmt.Sprintf("hour_%d", h), "⚠️ Не забудьте выполнить задачу!")
                }
            }
            switch hours := deadline.Sub(now).Hours(); {
            case hours >= 3.5 && hours <= 4.0:
                rw.fire(t, "4h", "⏳ До дедлайна осталось ~4 часа")
            case hours >= 1.5 && hours <= 2.5:
                rw.fire(t, "2h", "⏳ До дедлайна осталось ~2 часа")
            case hours >= 0.5 && hours <= 1.5:
                rw.fire(t, "1h", "⏳ До дедлайна осталось ~1 час")
            case hours >= 0.25 && hours < 0.5:
                rw.fire(t, "30m", "⏳ До дедлайна осталось ~30 минут")
            }
        } else if now.Hour() == 9 && now.Minute() < checkpointWindowMin {
            days := daysBetween(now, deadline)
            rw.fire(t, "day_"+now.Format("2006-01-02"),
                fmt.Sprintf("📅 До дедлайна осталось %s", declineDays(days)))
        }
    }
    return nil
}

func (rw *ReminderWorker) fire(t *sqlite.Task, label, line string) {
    key := fmt.Sprintf("task_%d_%s", t.ID, label)
    rw.mu.Lock()
    if _, done := rw.fired[key]; done {
        rw.mu.Unlock()
        return
    }
    rw.fired[key] = struct{}{}
    rw.mu.Unlock()

    who := rw.Names[t.Assignee]
    if who == "" { who = t.Assignee }
    text := fmt.Sprintf("⏰ НАПОМИНАНИЕ О ЗАДАЧЕ\n\n📝 Задача: %s\n⏰ Срок: %s\n%s\n👤 Исполнитель: %s",
        t.Title, t.DeadlineText.String, line, who)
    if rw.Send != nil { rw.Send(text) }
}

func sameDay(a, b time.Time) bool {
    return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

func daysBetween(from, to time.Time) int {
    f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
    t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
    return int(t.Sub(f).Hours() / 24)
}

func declineDays(n int) string {
    switch {
    case n == 1:
        return "1 день"
    case n >= 2 && n <= 4:
        return fmt.Sprintf("%d дня", n)
    default:
        return fmt.Sprintf("%d дней", n)
    }
}
