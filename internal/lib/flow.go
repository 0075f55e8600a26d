package lib

import (
    "context"
    "database/sql"
    "fmt"
    "strings"
    "time"

    tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

    "github.com/avlysenko/teamtasks/internal/storage/sqlite"
)

// Reply is what a dialogue step wants sent back. The transport layer decides
// how; the machine only builds text and keyboards.
type Reply struct {
    Text     string
    Keyboard *tgbotapi.InlineKeyboardMarkup
}

// step is one row of the transition table: how a state prompts, which input
// shapes it accepts, how it validates, and where it goes next. An empty next
// marks the state as the last collector before the terminal commit.
type step struct {
    prompt      func(f *Flows, d *Draft) Reply
    acceptText  bool
    acceptPhoto bool
    skippable   bool
    onText      func(f *Flows, d *Draft, text string) error
    onPhoto     func(d *Draft, fileID string)
    next        State
}

var steps = map[State]step{
    StateCreateTitle: {
        acceptText: true,
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{"📝 СОЗДАНИЕ ЗАДАЧИ\n\nВведите название задачи:", CancelKeyboard()}
        },
        onText: func(f *Flows, d *Draft, text string) error {
            if err := validateTitle(text); err != nil { return err }
            d.Title = text
            return nil
        },
        next: StateCreateDesc,
    },
    StateCreateDesc: {
        acceptText: true, skippable: true,
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{"Введите описание задачи:", SkipCancelKeyboard("⏭ Пропустить")}
        },
        onText: func(f *Flows, d *Draft, text string) error {
            if err := validateDescription(text); err != nil { return err }
            d.Description = text
            return nil
        },
        next: StateCreateAssignee,
    },
    StateCreateAssignee: {
        skippable: true, // skipping keeps the "all" default
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{"Выберите исполнителя:", AssigneeKeyboard(f.tracker.Roster())}
        },
        next: StateCreateDeadline,
    },
    StateCreateDeadline: {
        acceptText: true, skippable: true,
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{"Введите дедлайн.\nПримеры: 25.12.2024 14:30, 25.12.2024, «сегодня до 15:00»:",
                SkipCancelKeyboard("⏭ Пропустить")}
        },
        onText: applyDeadline,
        next:   StateCreatePhoto,
    },
    StateCreatePhoto: {
        acceptPhoto: true, skippable: true,
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{"Прикрепите фото к задаче:", SkipCancelKeyboard("⏭ Пропустить")}
        },
        onPhoto: func(d *Draft, fileID string) { d.PhotoFileID = fileID },
    },

    StateEditTitle: {
        acceptText: true, skippable: true,
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{fmt.Sprintf("✏️ РЕДАКТИРОВАНИЕ\n\nТекущее название: %s\nВведите новое название:", d.Title),
                SkipCancelKeyboard("⏭ Оставить текущее")}
        },
        onText: func(f *Flows, d *Draft, text string) error {
            if err := validateTitle(text); err != nil { return err }
            d.Title = text
            d.touch("title")
            return nil
        },
        next: StateEditDesc,
    },
    StateEditDesc: {
        acceptText: true, skippable: true,
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{"Введите новое описание:", SkipCancelKeyboard("⏭ Оставить текущее")}
        },
        onText: func(f *Flows, d *Draft, text string) error {
            if err := validateDescription(text); err != nil { return err }
            d.Description = text
            d.touch("description")
            return nil
        },
        next: StateEditDeadline,
    },
    StateEditDeadline: {
        acceptText: true, skippable: true,
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{"Введите новый дедлайн:", SkipCancelKeyboard("⏭ Оставить текущий")}
        },
        onText: func(f *Flows, d *Draft, text string) error {
            if err := applyDeadline(f, d, text); err != nil { return err }
            d.touch("deadline")
            return nil
        },
        next: StateEditAssignee,
    },
    StateEditAssignee: {
        skippable: true,
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{"Выберите нового исполнителя:", AssigneeKeyboard(f.tracker.Roster())}
        },
    },

    StateCompleteResult: {
        acceptText: true, skippable: true,
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{"✅ ЗАВЕРШЕНИЕ ЗАДАЧИ\n\nОпишите результат:", SkipCancelKeyboard("⏭ Пропустить")}
        },
        onText: applyResultText,
        next:   StateCompletePhoto,
    },
    StateCompletePhoto: {
        acceptPhoto: true, skippable: true,
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{"Прикрепите фото результата:", SkipCancelKeyboard("⏭ Пропустить")}
        },
        onPhoto: func(d *Draft, fileID string) { d.ResultFileID = fileID },
    },

    StateTakeViewing: {
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{"Задача показана выше. Отправьте результат или завершите сразу.", TakeWorkKeyboard(d.TaskID)}
        },
        next: StateTakeResult,
    },
    StateTakeResult: {
        acceptText: true,
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{"Отправьте текст результата:", CancelKeyboard()}
        },
        onText: applyResultText,
        next:   StateTakeMedia,
    },
    StateTakeMedia: {
        acceptPhoto: true, skippable: true,
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{"Прикрепите файл или фото:", SkipCancelKeyboard("⏭ Пропустить")}
        },
        onPhoto: func(d *Draft, fileID string) { d.ResultFileID = fileID },
    },

    StateAbsentReason: {
        acceptText: true,
        prompt: func(f *Flows, d *Draft) Reply {
            return Reply{"Укажите причину отсутствия:", CancelKeyboard()}
        },
        onText: func(f *Flows, d *Draft, text string) error {
            d.ResultText = text
            return nil
        },
    },
}

func validateTitle(text string) error {
    n := len([]rune(strings.TrimSpace(text)))
    if n < TitleMinLen || n > TitleMaxLen {
        return fmt.Errorf("Название должно быть от %d до %d символов.", TitleMinLen, TitleMaxLen)
    }
    return nil
}

func validateDescription(text string) error {
    if len([]rune(text)) > DescMaxLen {
        return fmt.Errorf("Описание не длиннее %d символов.", DescMaxLen)
    }
    return nil
}

func applyResultText(f *Flows, d *Draft, text string) error {
    if len([]rune(text)) > ResultMaxLen {
        return fmt.Errorf("Текст результата не длиннее %d символов.", ResultMaxLen)
    }
    d.ResultText = text
    return nil
}

func applyDeadline(f *Flows, d *Draft, text string) error {
    dl := ParseDeadline(text, f.clock(), f.tz)
    if dl.Kind == DeadlineInvalid {
        return fmt.Errorf("Не удалось разобрать дедлайн. Пример: 25.12.2024 14:30")
    }
    d.DeadlineText = dl.Text
    if dl.Kind == DeadlineResolved {
        at := dl.At
        d.DeadlineAt = &at
    } else {
        d.DeadlineAt = nil
    }
    return nil
}

// Flows drives the multi-step dialogues on top of the session store. All
// store writes happen in the terminal finish; cancel never touches the store.
type Flows struct {
    db       *sqlite.DB
    sessions *SessionStore
    tracker  *Tracker
    tz       *time.Location
    clock    func() time.Time
}

func NewFlows(db *sqlite.DB, sessions *SessionStore, tracker *Tracker, tz *time.Location, clock func() time.Time) *Flows {
    if clock == nil { clock = sqlite.Now }
    if tz == nil { tz = time.Local }
    return &Flows{db: db, sessions: sessions, tracker: tracker, tz: tz, clock: clock}
}

func (f *Flows) StartCreate(chatID, userID int64, creator string) Reply {
    sess := f.sessions.Start(chatID, userID, FlowCreate, StateCreateTitle)
    sess.Draft.Participant = creator
    return steps[StateCreateTitle].prompt(f, &sess.Draft)
}

func (f *Flows) StartEdit(ctx context.Context, chatID, userID int64, taskID int64, participant string) (Reply, error) {
    t, err := f.db.GetTask(ctx, taskID)
    if err != nil { return Reply{}, err }
    sess := f.sessions.Start(chatID, userID, FlowEdit, StateEditTitle)
    sess.Draft.TaskID = taskID
    sess.Draft.Participant = participant
    sess.Draft.Title = t.Title
    return steps[StateEditTitle].prompt(f, &sess.Draft), nil
}

func (f *Flows) StartComplete(ctx context.Context, chatID, userID int64, taskID int64, participant string) (Reply, error) {
    if _, err := f.db.GetTask(ctx, taskID); err != nil { return Reply{}, err }
    sess := f.sessions.Start(chatID, userID, FlowComplete, StateCompleteResult)
    sess.Draft.TaskID = taskID
    sess.Draft.Participant = participant
    return steps[StateCompleteResult].prompt(f, &sess.Draft), nil
}

func (f *Flows) StartTake(ctx context.Context, chatID, userID int64, taskID int64, participant string) (Reply, error) {
    if _, err := f.db.GetTask(ctx, taskID); err != nil { return Reply{}, err }
    sess := f.sessions.Start(chatID, userID, FlowTake, StateTakeViewing)
    sess.Draft.TaskID = taskID
    sess.Draft.Participant = participant
    return steps[StateTakeViewing].prompt(f, &sess.Draft), nil
}

func (f *Flows) StartAbsent(chatID, userID int64, participant string) Reply {
    sess := f.sessions.Start(chatID, userID, FlowAbsent, StateAbsentReason)
    sess.Draft.Participant = participant
    return steps[StateAbsentReason].prompt(f, &sess.Draft)
}

// HandleText feeds a free-text message into the active session. The second
// return is false when no session wants text, so the caller can fall through
// to other handlers. Invalid input re-prompts in place.
func (f *Flows) HandleText(ctx context.Context, chatID, userID int64, text string) (Reply, bool) {
    sess, ok := f.sessions.Get(chatID, userID)
    if !ok { return Reply{}, false }
    st := steps[sess.State]
    if !st.acceptText {
        return st.prompt(f, &sess.Draft), true
    }
    if err := st.onText(f, &sess.Draft, text); err != nil {
        return Reply{Text: err.Error()}, true
    }
    return f.advance(ctx, sess), true
}

func (f *Flows) HandlePhoto(ctx context.Context, chatID, userID int64, fileID string) (Reply, bool) {
    sess, ok := f.sessions.Get(chatID, userID)
    if !ok { return Reply{}, false }
    st := steps[sess.State]
    if !st.acceptPhoto {
        // Wrong input shape: stay put, repeat the prompt.
        return st.prompt(f, &sess.Draft), true
    }
    st.onPhoto(&sess.Draft, fileID)
    return f.advance(ctx, sess), true
}

// HandleSkip advances past an optional field, storing its default.
func (f *Flows) HandleSkip(ctx context.Context, chatID, userID int64) (Reply, bool) {
    sess, ok := f.sessions.Get(chatID, userID)
    if !ok { return Reply{}, false }
    if !steps[sess.State].skippable {
        return steps[sess.State].prompt(f, &sess.Draft), true
    }
    return f.advance(ctx, sess), true
}

// HandleNext serves explicit advance buttons (take-work: Viewing → result).
func (f *Flows) HandleNext(ctx context.Context, chatID, userID int64) (Reply, bool) {
    sess, ok := f.sessions.Get(chatID, userID)
    if !ok { return Reply{}, false }
    if sess.State != StateTakeViewing {
        return steps[sess.State].prompt(f, &sess.Draft), true
    }
    return f.advance(ctx, sess), true
}

// HandleCancel discards the draft. Terminal, no store mutation.
func (f *Flows) HandleCancel(chatID, userID int64) (Reply, bool) {
    _, ok := f.sessions.Get(chatID, userID)
    if !ok { return Reply{}, false }
    f.sessions.End(chatID, userID)
    return Reply{Text: "❌ Действие отменено.", Keyboard: MainMenuKeyboard()}, true
}

// HandleAssignee consumes an assignee-choice button in the states that show
// the roster keyboard.
func (f *Flows) HandleAssignee(ctx context.Context, chatID, userID int64, code string) (Reply, bool) {
    sess, ok := f.sessions.Get(chatID, userID)
    if !ok { return Reply{}, false }
    if sess.State != StateCreateAssignee && sess.State != StateEditAssignee {
        return steps[sess.State].prompt(f, &sess.Draft), true
    }
    if code != "all" && !f.tracker.inRoster(code) {
        return Reply{Text: "Неизвестный исполнитель."}, true
    }
    sess.Draft.Assignee = code
    sess.Draft.touch("assignee")
    return f.advance(ctx, sess), true
}

// HandleFastComplete is the Viewing → Completed fast path: default result
// text, no media, straight to the completion commit.
func (f *Flows) HandleFastComplete(ctx context.Context, chatID, userID int64, taskID int64) (Reply, bool) {
    sess, ok := f.sessions.Get(chatID, userID)
    if !ok || sess.Flow != FlowTake || sess.Draft.TaskID != taskID {
        return Reply{}, false
    }
    sess.Draft.ResultText = DefaultResult
    rep, err := f.finish(ctx, sess)
    if err != nil {
        f.sessions.End(chatID, userID)
        return Reply{Text: "⚠️ Задача недоступна. Попробуйте из меню.", Keyboard: MainMenuKeyboard()}, true
    }
    return rep, true
}

func (f *Flows) advance(ctx context.Context, sess *Session) Reply {
    next := steps[sess.State].next
    if next == "" {
        rep, err := f.finish(ctx, sess)
        if err != nil {
            f.sessions.End(sess.ChatID, sess.UserID)
            return Reply{Text: "⚠️ Не удалось сохранить. Вернитесь в меню.", Keyboard: MainMenuKeyboard()}
        }
        return rep
    }
    f.sessions.Touch(sess, next)
    return steps[next].prompt(f, &sess.Draft)
}

// finish commits the draft exactly once and ends the session.
func (f *Flows) finish(ctx context.Context, sess *Session) (Reply, error) {
    defer f.sessions.End(sess.ChatID, sess.UserID)
    d := &sess.Draft
    switch sess.Flow {
    case FlowCreate:
        assignee := d.Assignee
        if assignee == "" { assignee = "all" }
        t := &sqlite.Task{
            Title:    d.Title,
            Assignee: assignee,
            Creator:  d.Participant,
        }
        if d.Description != "" { t.Description = nullString(d.Description) }
        if d.DeadlineText != "" { t.DeadlineText = nullString(d.DeadlineText) }
        if d.DeadlineAt != nil { t.DeadlineAt = nullTime(*d.DeadlineAt) }
        if d.PhotoFileID != "" { t.PhotoFileID = nullString(d.PhotoFileID) }
        id, err := f.db.CreateTask(ctx, t)
        if err != nil { return Reply{}, err }
        return Reply{
            Text:     fmt.Sprintf("✅ Задача #%d «%s» создана.", id, d.Title),
            Keyboard: TaskActionsKeyboard(id),
        }, nil

    case FlowEdit:
        var p sqlite.TaskPatch
        if d.Touched["title"] { p.Title = &d.Title }
        if d.Touched["description"] { p.Description = &d.Description }
        if d.Touched["deadline"] {
            p.DeadlineText = &d.DeadlineText
            if d.DeadlineAt != nil {
                p.DeadlineAt = d.DeadlineAt
            } else {
                p.ClearDeadlineAt = true
            }
        }
        if d.Touched["assignee"] { p.Assignee = &d.Assignee }
        if err := f.db.UpdateTask(ctx, d.TaskID, p); err != nil { return Reply{}, err }
        return Reply{
            Text:     "✅ Задача обновлена.",
            Keyboard: TaskActionsKeyboard(d.TaskID),
        }, nil

    case FlowComplete, FlowTake:
        t, err := f.db.GetTask(ctx, d.TaskID)
        if err != nil { return Reply{}, err }
        // Completion first: if the toggles fail nothing else is written.
        agg, err := f.tracker.CompleteTask(ctx, t, d.Participant)
        if err != nil { return Reply{}, err }
        result := d.ResultText
        if result == "" { result = DefaultResult }
        patch := sqlite.TaskPatch{ResultText: &result}
        if d.ResultFileID != "" { patch.ResultFileID = &d.ResultFileID }
        if err := f.db.UpdateTask(ctx, d.TaskID, patch); err != nil { return Reply{}, err }
        txt := fmt.Sprintf("✅ Ваша часть задачи «%s» завершена.", t.Title)
        if agg == AggDone {
            txt = fmt.Sprintf("🎉 Задача «%s» полностью завершена.", t.Title)
        }
        return Reply{Text: txt, Keyboard: MainMenuKeyboard()}, nil

    case FlowAbsent:
        now := f.clock().In(f.tz)
        err := f.db.SavePresence(ctx, &sqlite.Presence{
            Participant: d.Participant,
            Date:        now.Format("2006-01-02"),
            Status:      sqlite.PresenceAbsent,
            Time:        now.Format("15:04"),
            Reason:      nullString(d.ResultText),
        })
        if err != nil { return Reply{}, err }
        return Reply{Text: "Отметка «отсутствую» сохранена."}, nil
    }
    return Reply{}, fmt.Errorf("unknown flow %q", sess.Flow)
}

func nullString(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }
func nullTime(t time.Time) sql.NullTime  { return sql.NullTime{Time: t, Valid: true} }
