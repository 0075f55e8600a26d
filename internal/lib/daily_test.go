package lib

import (
    "context"
    "strings"
    "testing"
    "time"
)

func TestMorningPostsResetStatuses(t *testing.T) {
    f, db := newTestFlows(t)
    ctx := context.Background()

    db.AddWeeklyTask(ctx, 0, "Проверить почту")
    db.AddWeeklyTask(ctx, 0, "Обновить статусы")

    // Yesterday's marks linger from the previous run of the same weekday.
    f.tracker.Toggle(ctx, "w0_1", "AG")

    posts, err := f.MorningPosts(ctx, 0)
    if err != nil {
        t.Fatalf("morning: %v", err)
    }
    if len(posts) != 2 {
        t.Fatalf("posts: %d", len(posts))
    }
    if !strings.Contains(posts[0].Reply.Text, "Проверить почту") {
        t.Fatalf("post text: %q", posts[0].Reply.Text)
    }
    subs, _ := f.tracker.Statuses(ctx, "w0_1")
    if len(subs) != 0 {
        t.Fatalf("stale marks survived the reset: %v", subs)
    }
}

func TestMorningPostsLeaveOtherDaysAlone(t *testing.T) {
    f, db := newTestFlows(t)
    ctx := context.Background()

    db.AddWeeklyTask(ctx, 1, "Задача вторника")
    f.tracker.Toggle(ctx, "w1_1", "KA")

    if _, err := f.MorningPosts(ctx, 0); err != nil {
        t.Fatalf("morning: %v", err)
    }
    subs, _ := f.tracker.Statuses(ctx, "w1_1")
    if subs["KA"] != SubPending {
        t.Fatalf("tuesday mark lost: %v", subs)
    }
}

func TestPersonalReminders(t *testing.T) {
    f, db := newTestFlows(t)
    ctx := context.Background()

    db.AddWeeklyTask(ctx, 2, "Созвон с клиентом")
    db.AddWeeklyTask(ctx, 2, "Закрыть тикеты")

    // AG finished everything, KA only the first task.
    f.tracker.Complete(ctx, "w2_1", "AG")
    f.tracker.Complete(ctx, "w2_2", "AG")
    f.tracker.Complete(ctx, "w2_1", "KA")

    rems, err := f.PersonalReminders(ctx, 2)
    if err != nil {
        t.Fatalf("reminders: %v", err)
    }
    if _, ok := rems["AG"]; ok {
        t.Fatal("AG reminded with nothing left")
    }
    text, ok := rems["KA"]
    if !ok || !strings.Contains(text, "Закрыть тикеты") {
        t.Fatalf("KA reminder: %q", text)
    }
    if strings.Contains(text, "Созвон с клиентом") {
        t.Fatal("finished task listed in the reminder")
    }
}

func TestEveningSummary(t *testing.T) {
    f, db := newTestFlows(t)
    ctx := context.Background()
    mentions := map[string]string{"AG": "alex301182", "KA": "Korudirp"}

    db.AddWeeklyTask(ctx, 3, "Отправить отчет")

    text, err := f.EveningSummary(ctx, 3, mentions)
    if err != nil {
        t.Fatalf("summary: %v", err)
    }
    if !strings.Contains(text, "@alex301182") || !strings.Contains(text, "@Korudirp") {
        t.Fatalf("missing mentions: %q", text)
    }

    f.tracker.Complete(ctx, "w3_1", "AG")
    f.tracker.Complete(ctx, "w3_1", "KA")
    text, _ = f.EveningSummary(ctx, 3, mentions)
    if !strings.Contains(text, "Все задачи выполнены") {
        t.Fatalf("all-done summary: %q", text)
    }
}

func TestEveningSummaryNoTasks(t *testing.T) {
    f, _ := newTestFlows(t)
    text, err := f.EveningSummary(context.Background(), 4, nil)
    if err != nil || text != "" {
        t.Fatalf("got %q, %v", text, err)
    }
}

func TestAttendanceMarks(t *testing.T) {
    db := newTestDB(t)
    now := time.Date(2026, 6, 10, 7, 55, 0, 0, time.Local)
    a := NewAttendance(db, time.Local, fixedClock(now))
    ctx := context.Background()

    if _, err := a.MarkHere(ctx, "AG"); err != nil {
        t.Fatalf("here: %v", err)
    }
    p, _ := db.GetPresence(ctx, "AG", "2026-06-10")
    if p.Status != "here" || p.Time != "07:55" {
        t.Fatalf("row: %+v", p)
    }

    // A later tap overwrites the day's mark.
    if _, err := a.MarkLate(ctx, "AG", 30); err != nil {
        t.Fatalf("late: %v", err)
    }
    p, _ = db.GetPresence(ctx, "AG", "2026-06-10")
    if p.Status != "late" || p.DelayMinutes != 30 {
        t.Fatalf("row after late: %+v", p)
    }

    report, err := a.DayReport(ctx, testRoster)
    if err != nil {
        t.Fatalf("report: %v", err)
    }
    if !strings.Contains(report, "AG: ⏰ опаздывает на 30 мин.") {
        t.Fatalf("report misses the late mark: %q", report)
    }
    if !strings.Contains(report, "KA: ❔ не отметился") {
        t.Fatalf("report misses the silent member: %q", report)
    }
}
