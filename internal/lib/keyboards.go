package lib

import (
    "fmt"

    tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

    "github.com/avlysenko/teamtasks/internal/storage/sqlite"
)

func btn(label string, c Command) tgbotapi.InlineKeyboardButton {
    return tgbotapi.NewInlineKeyboardButtonData(label, c.Token())
}

func MainMenuKeyboard() *tgbotapi.InlineKeyboardMarkup {
    kb := tgbotapi.NewInlineKeyboardMarkup(
        tgbotapi.NewInlineKeyboardRow(
            btn("📝 Создать задачу", Command{Verb: VerbMenuCreate}),
            btn("📋 Просмотреть задачи", Command{Verb: VerbMenuTasks}),
        ),
        tgbotapi.NewInlineKeyboardRow(
            btn("✅ Завершить задачу", Command{Verb: VerbMenuComplete}),
            btn("❓ Помощь", Command{Verb: VerbMenuHelp}),
        ),
    )
    return &kb
}

func CancelKeyboard() *tgbotapi.InlineKeyboardMarkup {
    kb := tgbotapi.NewInlineKeyboardMarkup(
        tgbotapi.NewInlineKeyboardRow(btn("❌ Отмена", Command{Verb: VerbFlowCancel})),
    )
    return &kb
}

func SkipCancelKeyboard(skipLabel string) *tgbotapi.InlineKeyboardMarkup {
    kb := tgbotapi.NewInlineKeyboardMarkup(
        tgbotapi.NewInlineKeyboardRow(
            btn(skipLabel, Command{Verb: VerbFlowSkip}),
            btn("❌ Отмена", Command{Verb: VerbFlowCancel}),
        ),
    )
    return &kb
}

func AssigneeKeyboard(roster []string) *tgbotapi.InlineKeyboardMarkup {
    var row []tgbotapi.InlineKeyboardButton
    for _, p := range roster {
        row = append(row, btn(p, Command{Verb: VerbAssign, Assignee: p}))
    }
    row = append(row, btn("Все", Command{Verb: VerbAssign, Assignee: "all"}))
    kb := tgbotapi.NewInlineKeyboardMarkup(
        row,
        tgbotapi.NewInlineKeyboardRow(btn("❌ Отмена", Command{Verb: VerbFlowCancel})),
    )
    return &kb
}

// TaskListKeyboard renders one button per task, prefixed with the lifecycle
// status emoji. Title truncation for Telegram limits happens at the edge.
func TaskListKeyboard(tasks []*sqlite.Task) *tgbotapi.InlineKeyboardMarkup {
    var rows [][]tgbotapi.InlineKeyboardButton
    for _, t := range tasks {
        label := fmt.Sprintf("%s %s", lifecycleEmoji(t.Status), t.Title)
        rows = append(rows, tgbotapi.NewInlineKeyboardRow(
            btn(label, Command{Verb: VerbTaskView, TaskID: t.ID}),
        ))
    }
    rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn("🔙 В меню", Command{Verb: VerbMenuMain})))
    kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
    return &kb
}

func TaskActionsKeyboard(taskID int64) *tgbotapi.InlineKeyboardMarkup {
    kb := tgbotapi.NewInlineKeyboardMarkup(
        tgbotapi.NewInlineKeyboardRow(
            btn("✏️ Редактировать", Command{Verb: VerbTaskEdit, TaskID: taskID}),
            btn("🗑 Удалить", Command{Verb: VerbTaskDelete, TaskID: taskID}),
        ),
        tgbotapi.NewInlineKeyboardRow(
            btn("✅ Завершить", Command{Verb: VerbTaskComplete, TaskID: taskID}),
            btn("🔙 К списку", Command{Verb: VerbMenuTasks}),
        ),
    )
    return &kb
}

func ConfirmDeleteKeyboard(taskID int64) *tgbotapi.InlineKeyboardMarkup {
    kb := tgbotapi.NewInlineKeyboardMarkup(
        tgbotapi.NewInlineKeyboardRow(
            btn("✅ Да, удалить", Command{Verb: VerbConfirmDel, TaskID: taskID}),
            btn("❌ Отмена", Command{Verb: VerbCancelDel, TaskID: taskID}),
        ),
    )
    return &kb
}

// TaskViewKeyboard is the full task card: a status toggle per required
// participant, take-work shortcuts, and the management actions. Pressing a
// toggle advances that participant's own mark only.
func TaskViewKeyboard(task *sqlite.Task, subs map[string]SubStatus, required []string) *tgbotapi.InlineKeyboardMarkup {
    var toggles, takes []tgbotapi.InlineKeyboardButton
    for _, p := range required {
        label := fmt.Sprintf("%s: %s", p, subs[p].Emoji())
        toggles = append(toggles, btn(label, Command{Verb: VerbTaskToggle, TaskID: task.ID, Participant: p}))
        takes = append(takes, btn("🚀 "+p, Command{Verb: VerbWorkTake, TaskID: task.ID, Participant: p}))
    }
    kb := tgbotapi.NewInlineKeyboardMarkup(
        toggles,
        takes,
        tgbotapi.NewInlineKeyboardRow(
            btn("✏️ Редактировать", Command{Verb: VerbTaskEdit, TaskID: task.ID}),
            btn("🗑 Удалить", Command{Verb: VerbTaskDelete, TaskID: task.ID}),
        ),
        tgbotapi.NewInlineKeyboardRow(
            btn("✅ Завершить", Command{Verb: VerbTaskComplete, TaskID: task.ID}),
            btn("🔙 К списку", Command{Verb: VerbMenuTasks}),
        ),
    )
    return &kb
}

// WeeklyTaskKeyboard is the recurring-task counterpart keyed by (day, seq).
func WeeklyTaskKeyboard(day, seq int, subs map[string]SubStatus, roster []string) *tgbotapi.InlineKeyboardMarkup {
    var row []tgbotapi.InlineKeyboardButton
    for _, p := range roster {
        label := fmt.Sprintf("%s: %s", p, subs[p].Emoji())
        row = append(row, btn(label, Command{Verb: VerbWeeklyToggle, Day: day, Seq: seq, Participant: p}))
    }
    kb := tgbotapi.NewInlineKeyboardMarkup(row)
    return &kb
}

func TakeWorkKeyboard(taskID int64) *tgbotapi.InlineKeyboardMarkup {
    kb := tgbotapi.NewInlineKeyboardMarkup(
        tgbotapi.NewInlineKeyboardRow(
            btn("✍️ Отправить результат", Command{Verb: VerbFlowNext}),
            btn("⚡ Быстро завершить", Command{Verb: VerbWorkFast, TaskID: taskID}),
        ),
        tgbotapi.NewInlineKeyboardRow(btn("❌ Отмена", Command{Verb: VerbFlowCancel})),
    )
    return &kb
}

func PresenceKeyboard() *tgbotapi.InlineKeyboardMarkup {
    kb := tgbotapi.NewInlineKeyboardMarkup(
        tgbotapi.NewInlineKeyboardRow(
            btn("✅ На месте", Command{Verb: VerbPresenceHere}),
            btn("⏰ Опаздываю", Command{Verb: VerbPresenceLate}),
        ),
        tgbotapi.NewInlineKeyboardRow(btn("🏠 Отсутствую", Command{Verb: VerbPresenceAbsent})),
    )
    return &kb
}

func DelayKeyboard() *tgbotapi.InlineKeyboardMarkup {
    kb := tgbotapi.NewInlineKeyboardMarkup(
        tgbotapi.NewInlineKeyboardRow(
            btn("15 мин", Command{Verb: VerbDelay, Minutes: 15}),
            btn("30 мин", Command{Verb: VerbDelay, Minutes: 30}),
            btn("60 мин", Command{Verb: VerbDelay, Minutes: 60}),
        ),
    )
    return &kb
}

func lifecycleEmoji(status string) string {
    switch status {
    case sqlite.TaskCompleted:
        return "✅"
    case sqlite.TaskInProgress:
        return "⏳"
    default:
        return "⚪"
    }
}
