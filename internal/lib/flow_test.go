package lib

import (
    "context"
    "strings"
    "testing"
    "time"

    "github.com/avlysenko/teamtasks/internal/storage/sqlite"
)

func newTestFlows(t *testing.T) (*Flows, *sqlite.DB) {
    t.Helper()
    db := newTestDB(t)
    now := time.Date(2026, 6, 10, 8, 0, 0, 0, time.Local)
    tracker := NewTracker(db, testRoster, fixedClock(now))
    sessions := NewSessionStore(6*time.Hour, nil)
    return NewFlows(db, sessions, tracker, time.Local, fixedClock(now)), db
}

func TestCreateFlowHappyPath(t *testing.T) {
    f, db := newTestFlows(t)
    ctx := context.Background()

    f.StartCreate(1, 10, "AG")
    if _, ok := f.HandleText(ctx, 1, 10, "Подготовить отчет"); !ok {
        t.Fatal("title not consumed")
    }
    f.HandleText(ctx, 1, 10, "Свести цифры за квартал")
    f.HandleAssignee(ctx, 1, 10, "KA")
    f.HandleText(ctx, 1, 10, "25.12.2026 14:30")
    rep, ok := f.HandleSkip(ctx, 1, 10) // no photo
    if !ok || !strings.Contains(rep.Text, "создана") {
        t.Fatalf("commit reply: %q", rep.Text)
    }

    tasks, err := db.ListTasks(ctx, "")
    if err != nil || len(tasks) != 1 {
        t.Fatalf("tasks: %v, err %v", tasks, err)
    }
    task := tasks[0]
    if task.Title != "Подготовить отчет" || task.Assignee != "KA" || task.Creator != "AG" {
        t.Fatalf("task fields: %+v", task)
    }
    want := time.Date(2026, 12, 25, 14, 30, 0, 0, time.Local)
    if !task.DeadlineAt.Valid || !task.DeadlineAt.Time.Equal(want) {
        t.Fatalf("deadline: %+v", task.DeadlineAt)
    }
    if _, ok := f.sessions.Get(1, 10); ok {
        t.Fatal("session survived the commit")
    }
}

func TestCreateFlowDefaultsToAll(t *testing.T) {
    f, db := newTestFlows(t)
    ctx := context.Background()

    f.StartCreate(1, 10, "AG")
    f.HandleText(ctx, 1, 10, "Задача для всех")
    f.HandleSkip(ctx, 1, 10)           // no description
    f.HandleSkip(ctx, 1, 10)           // keep assignee unset
    f.HandleText(ctx, 1, 10, "срочно") // label deadline
    f.HandleSkip(ctx, 1, 10)

    tasks, _ := db.ListTasks(ctx, "")
    if len(tasks) != 1 || tasks[0].Assignee != "all" {
        t.Fatalf("assignee default: %+v", tasks)
    }
    if tasks[0].DeadlineAt.Valid {
        t.Fatal("label deadline resolved a timestamp")
    }
    if !tasks[0].DeadlineText.Valid || tasks[0].DeadlineText.String != "срочно" {
        t.Fatalf("deadline text: %+v", tasks[0].DeadlineText)
    }
}

func TestCancelNeverWrites(t *testing.T) {
    f, db := newTestFlows(t)
    ctx := context.Background()

    f.StartCreate(1, 10, "AG")
    f.HandleText(ctx, 1, 10, "Почти готовая задача")
    rep, ok := f.HandleCancel(1, 10)
    if !ok || !strings.Contains(rep.Text, "отменено") {
        t.Fatalf("cancel reply: %q", rep.Text)
    }
    tasks, _ := db.ListTasks(ctx, "")
    if len(tasks) != 0 {
        t.Fatalf("cancel wrote a task: %+v", tasks)
    }
    if _, ok := f.sessions.Get(1, 10); ok {
        t.Fatal("cancelled session still present")
    }
}

func TestWrongInputShapeReprompts(t *testing.T) {
    f, _ := newTestFlows(t)
    ctx := context.Background()

    f.StartCreate(1, 10, "AG")
    f.HandleText(ctx, 1, 10, "Задача с кнопками")
    f.HandleText(ctx, 1, 10, "описание")

    // Assignee state accepts buttons only; free text must re-prompt in place.
    rep, ok := f.HandleText(ctx, 1, 10, "AG")
    if !ok || !strings.Contains(rep.Text, "исполнителя") {
        t.Fatalf("re-prompt: %q", rep.Text)
    }
    sess := mustGet(t, f.sessions, 1, 10)
    if sess.State != StateCreateAssignee {
        t.Fatalf("state moved to %q", sess.State)
    }
}

func TestTitleValidationKeepsState(t *testing.T) {
    f, _ := newTestFlows(t)
    ctx := context.Background()

    f.StartCreate(1, 10, "AG")
    rep, _ := f.HandleText(ctx, 1, 10, "ab")
    if !strings.Contains(rep.Text, "Название") {
        t.Fatalf("validation reply: %q", rep.Text)
    }
    sess := mustGet(t, f.sessions, 1, 10)
    if sess.State != StateCreateTitle {
        t.Fatalf("state after invalid title: %q", sess.State)
    }
    if _, ok := f.HandleText(ctx, 1, 10, "Нормальное название"); !ok {
        t.Fatal("valid retry rejected")
    }
    if mustGet(t, f.sessions, 1, 10).State != StateCreateDesc {
        t.Fatal("valid retry did not advance")
    }
}

func TestEditSkipKeepsCurrent(t *testing.T) {
    f, db := newTestFlows(t)
    ctx := context.Background()

    id, _ := db.CreateTask(ctx, &sqlite.Task{Title: "Исходное название", Assignee: "AG", Creator: "AG"})
    if _, err := f.StartEdit(ctx, 1, 10, id, "AG"); err != nil {
        t.Fatalf("start edit: %v", err)
    }
    f.HandleSkip(ctx, 1, 10) // title
    f.HandleSkip(ctx, 1, 10) // description
    f.HandleSkip(ctx, 1, 10) // deadline
    rep, _ := f.HandleSkip(ctx, 1, 10) // assignee, terminal
    if !strings.Contains(rep.Text, "обновлена") {
        t.Fatalf("edit reply: %q", rep.Text)
    }
    task, _ := db.GetTask(ctx, id)
    if task.Title != "Исходное название" || task.Assignee != "AG" {
        t.Fatalf("skip changed the task: %+v", task)
    }
}

func TestEditChangesOnlyTouchedFields(t *testing.T) {
    f, db := newTestFlows(t)
    ctx := context.Background()

    at := time.Date(2026, 7, 1, 10, 0, 0, 0, time.Local)
    id, _ := db.CreateTask(ctx, &sqlite.Task{
        Title: "Старое название", Assignee: "AG", Creator: "AG",
        DeadlineText: nullString("01.07.2026 10:00"),
        DeadlineAt:   nullTime(at),
    })
    f.StartEdit(ctx, 1, 10, id, "AG")
    f.HandleText(ctx, 1, 10, "Новое название")
    f.HandleSkip(ctx, 1, 10)                       // description untouched
    f.HandleText(ctx, 1, 10, "до конца недели")    // label clears the timestamp
    f.HandleAssignee(ctx, 1, 10, "KA")

    task, _ := db.GetTask(ctx, id)
    if task.Title != "Новое название" || task.Assignee != "KA" {
        t.Fatalf("edited fields: %+v", task)
    }
    if task.DeadlineAt.Valid {
        t.Fatal("label deadline kept the old timestamp")
    }
    if task.DeadlineText.String != "до конца недели" {
        t.Fatalf("deadline text: %q", task.DeadlineText.String)
    }
}

func TestCompleteFlowFinishesTask(t *testing.T) {
    f, db := newTestFlows(t)
    ctx := context.Background()

    id, _ := db.CreateTask(ctx, &sqlite.Task{Title: "Личная задача", Assignee: "KA", Creator: "AG"})
    if _, err := f.StartComplete(ctx, 1, 20, id, "KA"); err != nil {
        t.Fatalf("start: %v", err)
    }
    f.HandleText(ctx, 1, 20, "Сделал, выкладка в проде")
    rep, _ := f.HandleSkip(ctx, 1, 20) // no result photo
    if !strings.Contains(rep.Text, "полностью завершена") {
        t.Fatalf("reply: %q", rep.Text)
    }
    task, _ := db.GetTask(ctx, id)
    if task.Status != sqlite.TaskCompleted || !task.CompletedAt.Valid {
        t.Fatalf("lifecycle: %+v", task)
    }
    if task.ResultText.String != "Сделал, выкладка в проде" {
        t.Fatalf("result: %q", task.ResultText.String)
    }
}

func TestCompleteFlowFailureLeavesNoResult(t *testing.T) {
    f, db := newTestFlows(t)
    ctx := context.Background()

    id, _ := db.CreateTask(ctx, &sqlite.Task{Title: "Чужая задача", Assignee: "KA", Creator: "AG"})
    // A participant outside the roster cannot complete; the commit must
    // fail without leaving the result text behind.
    f.StartComplete(ctx, 1, 30, id, "ZZ")
    f.HandleText(ctx, 1, 30, "не должно сохраниться")
    rep, _ := f.HandleSkip(ctx, 1, 30)
    if !strings.Contains(rep.Text, "Не удалось сохранить") {
        t.Fatalf("reply: %q", rep.Text)
    }
    task, _ := db.GetTask(ctx, id)
    if task.ResultText.Valid {
        t.Fatalf("result committed on the error branch: %q", task.ResultText.String)
    }
    if task.Status != sqlite.TaskActive {
        t.Fatalf("status moved: %q", task.Status)
    }
}

func TestTakeWorkFastPath(t *testing.T) {
    f, db := newTestFlows(t)
    ctx := context.Background()

    id, _ := db.CreateTask(ctx, &sqlite.Task{Title: "Быстрая задача", Assignee: "AG", Creator: "KA"})
    if _, err := f.StartTake(ctx, 1, 10, id, "AG"); err != nil {
        t.Fatalf("start: %v", err)
    }
    rep, ok := f.HandleFastComplete(ctx, 1, 10, id)
    if !ok {
        t.Fatal("fast complete refused")
    }
    if !strings.Contains(rep.Text, "завершена") {
        t.Fatalf("reply: %q", rep.Text)
    }
    task, _ := db.GetTask(ctx, id)
    if task.ResultText.String != DefaultResult {
        t.Fatalf("result: %q", task.ResultText.String)
    }
    if task.Status != sqlite.TaskCompleted {
        t.Fatalf("status: %q", task.Status)
    }
}

func TestTakeWorkFastPathWrongTask(t *testing.T) {
    f, db := newTestFlows(t)
    ctx := context.Background()

    id, _ := db.CreateTask(ctx, &sqlite.Task{Title: "Задача", Assignee: "AG", Creator: "KA"})
    f.StartTake(ctx, 1, 10, id, "AG")
    if _, ok := f.HandleFastComplete(ctx, 1, 10, id+100); ok {
        t.Fatal("fast complete accepted a mismatched task id")
    }
}

func TestAbsentFlowSavesReason(t *testing.T) {
    f, db := newTestFlows(t)
    ctx := context.Background()

    f.StartAbsent(1, 10, "AG")
    rep, _ := f.HandleText(ctx, 1, 10, "болею")
    if !strings.Contains(rep.Text, "сохранена") {
        t.Fatalf("reply: %q", rep.Text)
    }
    p, err := db.GetPresence(ctx, "AG", "2026-06-10")
    if err != nil {
        t.Fatalf("presence: %v", err)
    }
    if p.Status != sqlite.PresenceAbsent || p.Reason.String != "болею" {
        t.Fatalf("row: %+v", p)
    }
}
