package lib

import (
    "context"
    "errors"
    "fmt"
    "log"
    "strconv"
    "strings"
    "time"

    tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

    "github.com/avlysenko/teamtasks/internal/storage/sqlite"
)

type Bot struct {
    API        *tgbotapi.BotAPI
    DB         *sqlite.DB
    ChatID     int64
    TZ         *time.Location
    Flows      *Flows
    Tracker    *Tracker
    Attendance *Attendance
    Reminders  *ReminderWorker
    Sessions   *SessionStore

    mentions map[string]string // initials -> username
    clock    func() time.Time
    stop     chan struct{}
}

func NewBot(api *tgbotapi.BotAPI, db *sqlite.DB, chatID int64, tz *time.Location, sessionTTL time.Duration) (*Bot, error) {
    users, err := db.ListUsers(context.Background())
    if err != nil { return nil, err }
    var roster []string
    mentions := map[string]string{}
    names := map[string]string{"all": "Все"}
    for _, u := range users {
        roster = append(roster, u.Initials)
        mentions[u.Initials] = u.Username
        names[u.Initials] = u.FullName
    }

    sessions := NewSessionStore(sessionTTL, nil)
    tracker := NewTracker(db, roster, nil)
    flows := NewFlows(db, sessions, tracker, tz, nil)
    att := NewAttendance(db, tz, nil)

    b := &Bot{
        API: api, DB: db, ChatID: chatID, TZ: tz,
        Flows: flows, Tracker: tracker, Attendance: att, Sessions: sessions,
        mentions: mentions,
        clock:    time.Now,
        stop:     make(chan struct{}),
    }
    b.Reminders = NewReminderWorker(db, tz, nil, func(text string) { b.reply(chatID, text) })
    b.Reminders.Names = names
    return b, nil
}

func (b *Bot) Start() error {
    upd := tgbotapi.NewUpdate(0)
    upd.Timeout = 30
    updates := b.API.GetUpdatesChan(upd)

    b.Sessions.StartSweeper(30*time.Minute, b.stop)
    b.Reminders.Start(30 * time.Second)
    b.startDaily(7, 50, b.sendPresencePrompt)
    b.startDaily(8, 0, b.sendMorningTasks)
    b.startDaily(13, 0, b.sendPersonalReminders)
    b.startDaily(16, 50, b.sendEveningSummary)

    for update := range updates {
        if update.Message != nil { go b.handleMessage(update.Message) }
        if update.CallbackQuery != nil { go b.handleCallback(update.CallbackQuery) }
    }
    return nil
}

func (b *Bot) Stop() { close(b.stop); b.Reminders.Stop() }

// participantOf maps a Telegram user to a roster code; empty when the
// sender is not one of the collaborators.
func (b *Bot) participantOf(from *tgbotapi.User) string {
    if from == nil || from.UserName == "" { return "" }
    u, err := b.DB.GetUserByUsername(context.Background(), from.UserName)
    if err != nil { return "" }
    if !u.TgID.Valid || u.TgID.Int64 != from.ID {
        _ = b.DB.SaveUserID(context.Background(), u.Username, from.ID)
    }
    return u.Initials
}

func (b *Bot) handleMessage(m *tgbotapi.Message) {
    ctx := context.Background()
    b.participantOf(m.From) // records the sender's tg id on first contact

    if m.IsCommand() {
        switch m.Command() {
        case "start", "menu":
            b.sendReply(m.Chat.ID, Reply{"👋 ГЛАВНОЕ МЕНЮ\n\nВыберите действие:", MainMenuKeyboard()})
        case "help":
            b.sendReply(m.Chat.ID, Reply{Text: helpText()})
        case "weekly_add":
            b.cmdWeeklyAdd(ctx, m)
        case "weekly_list":
            b.cmdWeeklyList(ctx, m)
        case "weekly_del":
            b.cmdWeeklyDel(ctx, m)
        case "presence":
            report, err := b.Attendance.DayReport(ctx, b.Tracker.Roster())
            if err != nil { b.reply(m.Chat.ID, "Ошибка чтения отметок."); return }
            b.reply(m.Chat.ID, report)
        default:
            b.reply(m.Chat.ID, "Неизвестная команда. /menu")
        }
        return
    }

    if len(m.Photo) > 0 {
        fileID := m.Photo[len(m.Photo)-1].FileID
        if rep, ok := b.Flows.HandlePhoto(ctx, m.Chat.ID, m.From.ID, fileID); ok {
            b.sendReply(m.Chat.ID, rep)
        }
        return
    }
    if m.Text != "" {
        if rep, ok := b.Flows.HandleText(ctx, m.Chat.ID, m.From.ID, m.Text); ok {
            b.sendReply(m.Chat.ID, rep)
        }
    }
}

func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
    ctx := context.Background()
    cmd, err := ParseCommand(cq.Data)
    if err != nil {
        log.Println("callback:", err)
        b.answer(cq, "Неизвестная команда")
        return
    }
    who := b.participantOf(cq.From)
    chatID := cq.Message.Chat.ID
    userID := cq.From.ID

    switch cmd.Verb {
    case VerbMenuMain:
        b.edit(cq, "👋 ГЛАВНОЕ МЕНЮ\n\nВыберите действие:", MainMenuKeyboard())
        b.answer(cq, "")
    case VerbMenuHelp:
        b.edit(cq, helpText(), MainMenuKeyboard())
        b.answer(cq, "")
    case VerbMenuCreate:
        if who == "" { b.answer(cq, "Вы не в списке участников"); return }
        rep := b.Flows.StartCreate(chatID, userID, who)
        b.sendReply(chatID, rep)
        b.answer(cq, "Создание задачи")
    case VerbMenuTasks, VerbMenuComplete:
        tasks, err := b.DB.ListOpenTasks(ctx)
        if err != nil { b.answer(cq, "Ошибка чтения задач"); return }
        if len(tasks) == 0 {
            b.edit(cq, "📋 Активных задач нет.", MainMenuKeyboard())
        } else {
            b.edit(cq, fmt.Sprintf("📋 Активные задачи: %d", len(tasks)), TaskListKeyboard(tasks))
        }
        b.answer(cq, "")

    case VerbTaskView:
        b.showTask(ctx, cq, cmd.TaskID)
    case VerbTaskEdit:
        rep, err := b.Flows.StartEdit(ctx, chatID, userID, cmd.TaskID, who)
        if err != nil { b.notFound(cq, err); return }
        b.sendReply(chatID, rep)
        b.answer(cq, "Редактирование")
    case VerbTaskComplete:
        if who == "" { b.answer(cq, "Вы не в списке участников"); return }
        rep, err := b.Flows.StartComplete(ctx, chatID, userID, cmd.TaskID, who)
        if err != nil { b.notFound(cq, err); return }
        b.sendReply(chatID, rep)
        b.answer(cq, "Завершение")
    case VerbTaskDelete:
        b.edit(cq, "Удалить задачу?", ConfirmDeleteKeyboard(cmd.TaskID))
        b.answer(cq, "")
    case VerbConfirmDel:
        if err := b.DB.DeleteTask(ctx, cmd.TaskID); err != nil { b.notFound(cq, err); return }
        b.edit(cq, "🗑 Задача удалена.", MainMenuKeyboard())
        b.answer(cq, "Удалено")
    case VerbCancelDel:
        b.showTask(ctx, cq, cmd.TaskID)

    case VerbTaskToggle:
        b.onTaskToggle(ctx, cq, cmd)
    case VerbWeeklyToggle:
        b.onWeeklyToggle(ctx, cq, cmd)

    case VerbWorkTake:
        if who == "" || who != cmd.Participant {
            b.answer(cq, "Это не ваша кнопка")
            return
        }
        t, err := b.DB.GetTask(ctx, cmd.TaskID)
        if err != nil { b.notFound(cq, err); return }
        rep, err := b.Flows.StartTake(ctx, chatID, userID, cmd.TaskID, who)
        if err != nil { b.notFound(cq, err); return }
        b.reply(chatID, b.formatTask(ctx, t))
        b.sendReply(chatID, rep)
        b.answer(cq, "Работа взята")
    case VerbWorkFast:
        if rep, ok := b.Flows.HandleFastComplete(ctx, chatID, userID, cmd.TaskID); ok {
            b.sendReply(chatID, rep)
            b.answer(cq, "Завершено")
        } else {
            b.answer(cq, "Нет активного диалога")
        }

    case VerbFlowSkip:
        if rep, ok := b.Flows.HandleSkip(ctx, chatID, userID); ok {
            b.sendReply(chatID, rep)
        }
        b.answer(cq, "")
    case VerbFlowNext:
        if rep, ok := b.Flows.HandleNext(ctx, chatID, userID); ok {
            b.sendReply(chatID, rep)
        }
        b.answer(cq, "")
    case VerbFlowCancel:
        if rep, ok := b.Flows.HandleCancel(chatID, userID); ok {
            b.sendReply(chatID, rep)
        }
        b.answer(cq, "Отменено")
    case VerbAssign:
        if rep, ok := b.Flows.HandleAssignee(ctx, chatID, userID, cmd.Assignee); ok {
            b.sendReply(chatID, rep)
        }
        b.answer(cq, "")

    case VerbPresenceHere:
        if who == "" { b.answer(cq, "Вы не в списке участников"); return }
        txt, err := b.Attendance.MarkHere(ctx, who)
        if err != nil { b.answer(cq, "Ошибка сохранения"); return }
        b.reply(chatID, txt)
        b.answer(cq, "Отмечено")
    case VerbPresenceLate:
        b.sendReply(chatID, Reply{"На сколько опаздываете?", DelayKeyboard()})
        b.answer(cq, "")
    case VerbDelay:
        if who == "" { b.answer(cq, "Вы не в списке участников"); return }
        txt, err := b.Attendance.MarkLate(ctx, who, cmd.Minutes)
        if err != nil { b.answer(cq, "Ошибка сохранения"); return }
        b.reply(chatID, txt)
        b.answer(cq, "Отмечено")
    case VerbPresenceAbsent:
        if who == "" { b.answer(cq, "Вы не в списке участников"); return }
        rep := b.Flows.StartAbsent(chatID, userID, who)
        b.sendReply(chatID, rep)
        b.answer(cq, "")
    }
}

func (b *Bot) onTaskToggle(ctx context.Context, cq *tgbotapi.CallbackQuery, cmd Command) {
    who := b.participantOf(cq.From)
    if who != cmd.Participant {
        b.answer(cq, "Это не ваша кнопка")
        return
    }
    t, err := b.DB.GetTask(ctx, cmd.TaskID)
    if err != nil { b.notFound(cq, err); return }
    sub, _, err := b.Tracker.ToggleTask(ctx, t, cmd.Participant)
    if err != nil {
        if errors.Is(err, ErrUnknownParticipant) { b.answer(cq, "Вы не в списке участников"); return }
        b.answer(cq, "Ошибка сохранения")
        return
    }
    subs, _ := b.Tracker.Statuses(ctx, sqlite.CustomTaskKey(t.ID))
    kb := TaskViewKeyboard(t, subs, b.Tracker.RequiredFor(t))
    b.editKeyboard(cq, kb)
    b.answer(cq, "Статус изменен: "+sub.Emoji())
}

func (b *Bot) onWeeklyToggle(ctx context.Context, cq *tgbotapi.CallbackQuery, cmd Command) {
    who := b.participantOf(cq.From)
    if who != cmd.Participant {
        b.answer(cq, "Это не ваша кнопка")
        return
    }
    key := sqlite.WeeklyTaskKey(cmd.Day, cmd.Seq)
    sub, err := b.Tracker.Toggle(ctx, key, cmd.Participant)
    if err != nil {
        if errors.Is(err, ErrUnknownParticipant) { b.answer(cq, "Вы не в списке участников"); return }
        b.answer(cq, "Ошибка сохранения")
        return
    }
    subs, _ := b.Tracker.Statuses(ctx, key)
    b.editKeyboard(cq, WeeklyTaskKeyboard(cmd.Day, cmd.Seq, subs, b.Tracker.Roster()))
    b.answer(cq, "Статус изменен: "+sub.Emoji())
}

func (b *Bot) showTask(ctx context.Context, cq *tgbotapi.CallbackQuery, taskID int64) {
    t, err := b.DB.GetTask(ctx, taskID)
    if err != nil { b.notFound(cq, err); return }
    subs, err := b.Tracker.Statuses(ctx, sqlite.CustomTaskKey(t.ID))
    if err != nil { b.notFound(cq, err); return }
    b.edit(cq, b.formatTask(ctx, t), TaskViewKeyboard(t, subs, b.Tracker.RequiredFor(t)))
    b.answer(cq, "")
}

func (b *Bot) formatTask(ctx context.Context, t *sqlite.Task) string {
    var sb strings.Builder
    fmt.Fprintf(&sb, "📝 Задача #%d: %s\n", t.ID, t.Title)
    if t.Description.Valid { sb.WriteString("\n" + t.Description.String + "\n") }
    if t.DeadlineText.Valid { sb.WriteString("\n⏰ Срок: " + t.DeadlineText.String + "\n") }
    who := b.Reminders.Names[t.Assignee]
    if who == "" { who = t.Assignee }
    fmt.Fprintf(&sb, "👤 Исполнитель: %s\n", who)
    subs, err := b.Tracker.Statuses(ctx, sqlite.CustomTaskKey(t.ID))
    if err == nil {
        for _, p := range b.Tracker.RequiredFor(t) {
            fmt.Fprintf(&sb, "  %s: %s\n", p, subs[p].Emoji())
        }
    }
    if t.CompletedAt.Valid {
        sb.WriteString("✅ Завершена: " + t.CompletedAt.Time.In(b.TZ).Format("02.01.2006 15:04") + "\n")
    }
    return sb.String()
}

func (b *Bot) cmdWeeklyAdd(ctx context.Context, m *tgbotapi.Message) {
    args := strings.SplitN(strings.TrimSpace(m.CommandArguments()), " ", 2)
    if len(args) < 2 {
        b.reply(m.Chat.ID, "Использование: /weekly_add <день 0-4> <текст задачи>")
        return
    }
    day, err := strconv.Atoi(args[0])
    if err != nil || day < 0 || day > 4 {
        b.reply(m.Chat.ID, "День должен быть числом от 0 (пн) до 4 (пт).")
        return
    }
    if _, err := b.DB.AddWeeklyTask(ctx, day, args[1]); err != nil {
        b.reply(m.Chat.ID, "Ошибка: "+err.Error())
        return
    }
    b.reply(m.Chat.ID, "Задача добавлена в расписание.")
}

func (b *Bot) cmdWeeklyList(ctx context.Context, m *tgbotapi.Message) {
    day, err := strconv.Atoi(strings.TrimSpace(m.CommandArguments()))
    if err != nil || day < 0 || day > 6 {
        b.reply(m.Chat.ID, "Использование: /weekly_list <день 0-4>")
        return
    }
    tasks, err := b.DB.ListWeeklyTasks(ctx, day)
    if err != nil || len(tasks) == 0 {
        b.reply(m.Chat.ID, "На этот день задач нет.")
        return
    }
    var sb strings.Builder
    sb.WriteString("Задачи дня:\n")
    for _, t := range tasks {
        fmt.Fprintf(&sb, "- [%d] %s\n", t.ID, t.Text)
    }
    sb.WriteString("\nУдалить: /weekly_del <id>")
    b.reply(m.Chat.ID, sb.String())
}

func (b *Bot) cmdWeeklyDel(ctx context.Context, m *tgbotapi.Message) {
    id, err := strconv.ParseInt(strings.TrimSpace(m.CommandArguments()), 10, 64)
    if err != nil { b.reply(m.Chat.ID, "id должен быть числом"); return }
    if err := b.DB.DeleteWeeklyTask(ctx, id); err != nil {
        b.reply(m.Chat.ID, "Задача не найдена.")
        return
    }
    b.reply(m.Chat.ID, "Задача удалена из расписания.")
}

func (b *Bot) sendPresencePrompt() {
    b.sendReply(b.ChatID, Reply{b.Attendance.PromptText(), PresenceKeyboard()})
}

func (b *Bot) sendMorningTasks() {
    ctx := context.Background()
    day := b.weekday()
    posts, err := b.Flows.MorningPosts(ctx, day)
    if err != nil { log.Println("morning posts:", err); return }
    if len(posts) == 0 { return }
    b.reply(b.ChatID, "📋 ЗАДАЧИ НА СЕГОДНЯ")
    for _, p := range posts { b.sendReply(b.ChatID, p.Reply) }
}

func (b *Bot) sendPersonalReminders() {
    ctx := context.Background()
    rems, err := b.Flows.PersonalReminders(ctx, b.weekday())
    if err != nil { log.Println("personal reminders:", err); return }
    for code, text := range rems {
        u, err := b.DB.GetUserByInitials(ctx, code)
        if err != nil || !u.TgID.Valid {
            log.Printf("no tg id for %s yet", code)
            continue
        }
        b.reply(u.TgID.Int64, text)
    }
}

func (b *Bot) sendEveningSummary() {
    ctx := context.Background()
    text, err := b.Flows.EveningSummary(ctx, b.weekday(), b.mentions)
    if err != nil { log.Println("evening summary:", err); return }
    if text != "" { b.reply(b.ChatID, text) }
}

func (b *Bot) weekday() int {
    return (int(b.clock().In(b.TZ).Weekday()) + 6) % 7
}

// startDaily fires fn at the given wall-clock time on workdays.
func (b *Bot) startDaily(hour, minute int, fn func()) {
    go func() {
        for {
            now := time.Now().In(b.TZ)
            next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, b.TZ)
            if !now.Before(next) { next = next.Add(24 * time.Hour) }
            select {
            case <-b.stop:
                return
            case <-time.After(next.Sub(now)):
            }
            if b.weekday() <= 4 { fn() }
        }
    }()
}

func helpText() string {
    return "❓ ПОМОЩЬ\n\n" +
        "📝 Создать задачу — добавить новую задачу\n" +
        "📋 Просмотреть задачи — список активных задач\n" +
        "✅ Завершить задачу — отметить задачу выполненной\n\n" +
        "⏰ Отметка присутствия\n" +
        "Каждый будний день в 07:50 в общем чате появляются кнопки для отметки присутствия.\n\n" +
        "Команды:\n/weekly_add <день> <текст>\n/weekly_list <день>\n/weekly_del <id>\n/presence — отметки за сегодня"
}

func (b *Bot) reply(chatID int64, text string) { b.API.Send(tgbotapi.NewMessage(chatID, text)) }

func (b *Bot) sendReply(chatID int64, rep Reply) {
    if rep.Text == "" { return }
    msg := tgbotapi.NewMessage(chatID, rep.Text)
    if rep.Keyboard != nil { msg.ReplyMarkup = rep.Keyboard }
    b.API.Send(msg)
}

func (b *Bot) answer(cq *tgbotapi.CallbackQuery, text string) {
    b.API.Request(tgbotapi.NewCallback(cq.ID, text))
}

func (b *Bot) edit(cq *tgbotapi.CallbackQuery, text string, kb *tgbotapi.InlineKeyboardMarkup) {
    if kb != nil {
        b.API.Send(tgbotapi.NewEditMessageTextAndMarkup(cq.Message.Chat.ID, cq.Message.MessageID, text, *kb))
        return
    }
    b.API.Send(tgbotapi.NewEditMessageText(cq.Message.Chat.ID, cq.Message.MessageID, text))
}

func (b *Bot) editKeyboard(cq *tgbotapi.CallbackQuery, kb *tgbotapi.InlineKeyboardMarkup) {
    b.API.Send(tgbotapi.NewEditMessageReplyMarkup(cq.Message.Chat.ID, cq.Message.MessageID, *kb))
}

func (b *Bot) notFound(cq *tgbotapi.CallbackQuery, err error) {
    if errors.Is(err, sqlite.ErrNotFound) {
        b.answer(cq, "Задача не найдена")
        b.sendReply(cq.Message.Chat.ID, Reply{"⚠️ Задача больше не существует.", MainMenuKeyboard()})
        return
    }
    log.Println("store error:", err)
    b.answer(cq, "Ошибка. Попробуйте ещё раз")
}
