package lib

import (
    "context"
    "fmt"
    "strings"

    "github.com/avlysenko/teamtasks/internal/storage/sqlite"
)

// WeeklyPost is one recurring task ready for the group chat: its text plus
// the keyboard reflecting everyone's current marks.
type WeeklyPost struct {
    Task  *sqlite.WeeklyTask
    Reply Reply
}

// MorningPosts resets the weekday's sub-statuses and builds the task posts
// for the group chat. Run once per workday morning.
func (f *Flows) MorningPosts(ctx context.Context, day int) ([]WeeklyPost, error) {
    if err := f.db.ClearWeeklyStatuses(ctx, day); err != nil { return nil, err }
    tasks, err := f.db.ListWeeklyTasks(ctx, day)
    if err != nil { return nil, err }
    roster := f.tracker.Roster()
    var out []WeeklyPost
    for _, t := range tasks {
        subs := map[string]SubStatus{}
        out = append(out, WeeklyPost{
            Task: t,
            Reply: Reply{
                Text:     fmt.Sprintf("📌 Задача %d: %s", t.Seq, t.Text),
                Keyboard: WeeklyTaskKeyboard(t.Day, t.Seq, subs, roster),
            },
        })
    }
    return out, nil
}

// PersonalReminders builds the 13:00 nudge per participant: the weekday
// tasks that participant has not finished yet. Keys are participant codes.
func (f *Flows) PersonalReminders(ctx context.Context, day int) (map[string]string, error) {
    tasks, err := f.db.ListWeeklyTasks(ctx, day)
    if err != nil { return nil, err }
    out := map[string]string{}
    for _, p := range f.tracker.Roster() {
        var missing []string
        for _, t := range tasks {
            subs, err := f.tracker.Statuses(ctx, sqlite.WeeklyTaskKey(t.Day, t.Seq))
            if err != nil { return nil, err }
            if subs[p] != SubDone {
                missing = append(missing, fmt.Sprintf("%d. %s", len(missing)+1, t.Text))
            }
        }
        if len(missing) == 0 { continue }
        out[p] = "⏰ НАПОМИНАНИЕ\n\nУ вас есть невыполненные задачи:\n\n" + strings.Join(missing, "\n")
    }
    return out, nil
}

// EveningSummary is the 16:50 wrap-up naming who is still missing on each
// unfinished recurring task.
func (f *Flows) EveningSummary(ctx context.Context, day int, mentions map[string]string) (string, error) {
    tasks, err := f.db.ListWeeklyTasks(ctx, day)
    if err != nil { return "", err }
    if len(tasks) == 0 { return "", nil }

    var lines []string
    for _, t := range tasks {
        subs, err := f.tracker.Statuses(ctx, sqlite.WeeklyTaskKey(t.Day, t.Seq))
        if err != nil { return "", err }
        var waiting []string
        for _, p := range f.tracker.Roster() {
            if subs[p] != SubDone {
                m := mentions[p]
                if m == "" { m = p }
                waiting = append(waiting, "@"+m)
            }
        }
        if len(waiting) > 0 {
            lines = append(lines, fmt.Sprintf("• %s — %s", t.Text, strings.Join(waiting, " ")))
        }
    }
    if len(lines) == 0 {
        return "✅ ИТОГИ ДНЯ\n\nВсе задачи выполнены! 🎉", nil
    }
    return "📊 ИТОГИ ДНЯ\n\nНевыполненные задачи:\n\n" + strings.Join(lines, "\n"), nil
}
