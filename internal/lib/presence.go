package lib

import (
    "context"
    "fmt"
    "strings"
    "time"

    "github.com/avlysenko/teamtasks/internal/storage/sqlite"
)

// Attendance records the daily presence marks. It shares the toggle engine's
// discipline: every mutation is a single keyed upsert, never a stale
// read-modify-write of somebody else's row.
type Attendance struct {
    db    *sqlite.DB
    tz    *time.Location
    clock func() time.Time
}

func NewAttendance(db *sqlite.DB, tz *time.Location, clock func() time.Time) *Attendance {
    if clock == nil { clock = sqlite.Now }
    if tz == nil { tz = time.Local }
    return &Attendance{db: db, tz: tz, clock: clock}
}

func (a *Attendance) today() (date, clock string) {
    now := a.clock().In(a.tz)
    return now.Format("2006-01-02"), now.Format("15:04")
}

func (a *Attendance) MarkHere(ctx context.Context, participant string) (string, error) {
    date, t := a.today()
    err := a.db.SavePresence(ctx, &sqlite.Presence{
        Participant: participant, Date: date, Status: sqlite.PresenceHere, Time: t,
    })
    if err != nil { return "", err }
    return fmt.Sprintf("✅ %s на рабочем месте\n⏰ Время: %s", participant, t), nil
}

func (a *Attendance) MarkLate(ctx context.Context, participant string, minutes int) (string, error) {
    date, t := a.today()
    err := a.db.SavePresence(ctx, &sqlite.Presence{
        Participant: participant, Date: date, Status: sqlite.PresenceLate,
        Time: t, DelayMinutes: minutes,
    })
    if err != nil { return "", err }
    return fmt.Sprintf("⏰ %s опаздывает на %d мин.", participant, minutes), nil
}

// PromptText is the 07:50 group-chat message next to the presence keyboard.
func (a *Attendance) PromptText() string {
    return "🌅 Доброе утро! Отметьте присутствие:"
}

// DayReport lists today's marks; roster members without a row count as
// not checked in yet.
func (a *Attendance) DayReport(ctx context.Context, roster []string) (string, error) {
    date, _ := a.today()
    rows, err := a.db.ListPresence(ctx, date)
    if err != nil { return "", err }
    byCode := map[string]*sqlite.Presence{}
    for _, p := range rows { byCode[p.Participant] = p }

    var sb strings.Builder
    sb.WriteString("📋 Присутствие на " + date + ":\n")
    for _, code := range roster {
        p, ok := byCode[code]
        switch {
        case !ok:
            fmt.Fprintf(&sb, "%s: ❔ не отметился\n", code)
        case p.Status == sqlite.PresenceHere:
            fmt.Fprintf(&sb, "%s: ✅ на месте с %s\n", code, p.Time)
        case p.Status == sqlite.PresenceLate:
            fmt.Fprintf(&sb, "%s: ⏰ опаздывает на %d мин.\n", code, p.DelayMinutes)
        default:
            reason := p.Reason.String
            if reason == "" { reason = "без причины" }
            fmt.Fprintf(&sb, "%s: 🏠 отсутствует (%s)\n", code, reason)
        }
    }
    return sb.String(), nil
}
