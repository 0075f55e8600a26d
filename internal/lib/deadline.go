package lib

import (
    "regexp"
    "strconv"
    "strings"
    "time"
)

// Deadline parsing outcome. A Label deadline is kept verbatim and never
// schedules reminders; Invalid means the text looked like a known grammar
// but carried out-of-range numbers, so the dialogue re-prompts.
type DeadlineKind int

const (
    DeadlineResolved DeadlineKind = iota
    DeadlineLabel
    DeadlineInvalid
)

type Deadline struct {
    Kind DeadlineKind
    At   time.Time
    Text string
}

var (
    todayRx    = regexp.MustCompile(`(?i)^сегодня\s+до\s+(.+)$`)
    dateTimeRx = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})\s+(\d{1,2}):(\d{2})$`)
    dateRx     = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})$`)
    ampmRx     = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{2}))?\s*(AM|PM)$`)
    clockRx    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?$`)
)

// ParseDeadline normalizes free-form deadline text. Grammars are tried in
// order: "сегодня до HH:MM" (24h or AM/PM), "DD.MM.YYYY HH:MM",
// "DD.MM.YYYY" (end of day). Anything else is a verbatim label.
func ParseDeadline(s string, now time.Time, loc *time.Location) Deadline {
    s = strings.TrimSpace(s)
    if s == "" { return Deadline{Kind: DeadlineLabel, Text: s} }

    if m := todayRx.FindStringSubmatch(s); m != nil {
        hour, minute, ok := parseClock(strings.TrimSpace(m[1]))
        if !ok { return Deadline{Kind: DeadlineInvalid, Text: s} }
        n := now.In(loc)
        at := time.Date(n.Year(), n.Month(), n.Day(), hour, minute, 0, 0, loc)
        return Deadline{Kind: DeadlineResolved, At: at, Text: s}
    }

    if m := dateTimeRx.FindStringSubmatch(s); m != nil {
        at, ok := buildDate(m[1], m[2], m[3], m[4], m[5], loc)
        if !ok { return Deadline{Kind: DeadlineInvalid, Text: s} }
        return Deadline{Kind: DeadlineResolved, At: at, Text: s}
    }

    if m := dateRx.FindStringSubmatch(s); m != nil {
        at, ok := buildDate(m[1], m[2], m[3], "23", "59", loc)
        if !ok { return Deadline{Kind: DeadlineInvalid, Text: s} }
        return Deadline{Kind: DeadlineResolved, At: at, Text: s}
    }

    return Deadline{Kind: DeadlineLabel, Text: s}
}

func parseClock(s string) (hour, minute int, ok bool) {
    if m := ampmRx.FindStringSubmatch(s); m != nil {
        hour, _ = strconv.Atoi(m[1])
        if m[2] != "" { minute, _ = strconv.Atoi(m[2]) }
        if hour < 1 || hour > 12 || minute > 59 { return 0, 0, false }
        pm := strings.EqualFold(m[3], "PM")
        if pm && hour != 12 { hour += 12 }
        if !pm && hour == 12 { hour = 0 }
        return hour, minute, true
    }
    if m := clockRx.FindStringSubmatch(s); m != nil {
        hour, _ = strconv.Atoi(m[1])
        if m[2] != "" { minute, _ = strconv.Atoi(m[2]) }
        if hour > 23 || minute > 59 { return 0, 0, false }
        return hour, minute, true
    }
    return 0, 0, false
}

func buildDate(dd, mm, yyyy, hh, mi string, loc *time.Location) (time.Time, bool) {
    day, _ := strconv.Atoi(dd)
    month, _ := strconv.Atoi(mm)
    year, _ := strconv.Atoi(yyyy)
    hour, _ := strconv.Atoi(hh)
    minute, _ := strconv.Atoi(mi)
    if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
        return time.Time{}, false
    }
    at := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
    // time.Date normalizes overflow (31.02 becomes 02/03); reject that.
    if at.Day() != day || at.Month() != time.Month(month) {
        return time.Time{}, false
    }
    return at, true
}
