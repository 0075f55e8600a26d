package lib

import (
    "testing"
    "time"
)

func TestParseDeadline(t *testing.T) {
    loc := time.Local
    now := time.Date(2026, 6, 10, 8, 0, 0, 0, loc)

    cases := []struct {
        in   string
        kind DeadlineKind
        at   time.Time
    }{
        {"25.12.2026 14:30", DeadlineResolved, time.Date(2026, 12, 25, 14, 30, 0, 0, loc)},
        {"25.12.2026", DeadlineResolved, time.Date(2026, 12, 25, 23, 59, 0, 0, loc)},
        {"сегодня до 15:00", DeadlineResolved, time.Date(2026, 6, 10, 15, 0, 0, 0, loc)},
        {"Сегодня до 9", DeadlineResolved, time.Date(2026, 6, 10, 9, 0, 0, 0, loc)},
        {"сегодня до 3 PM", DeadlineResolved, time.Date(2026, 6, 10, 15, 0, 0, 0, loc)},
        {"сегодня до 12 AM", DeadlineResolved, time.Date(2026, 6, 10, 0, 0, 0, 0, loc)},
        {"сегодня до 12:30 pm", DeadlineResolved, time.Date(2026, 6, 10, 12, 30, 0, 0, loc)},
        {"  25.12.2026 14:30  ", DeadlineResolved, time.Date(2026, 12, 25, 14, 30, 0, 0, loc)},

        {"до конца недели", DeadlineLabel, time.Time{}},
        {"ASAP", DeadlineLabel, time.Time{}},

        {"сегодня до 25:00", DeadlineInvalid, time.Time{}},
        {"сегодня до 13 PM", DeadlineInvalid, time.Time{}},
        {"31.02.2026", DeadlineInvalid, time.Time{}},
        {"25.13.2026 10:00", DeadlineInvalid, time.Time{}},
        {"25.12.2026 24:00", DeadlineInvalid, time.Time{}},
    }
    for _, c := range cases {
        got := ParseDeadline(c.in, now, loc)
        if got.Kind != c.kind {
            t.Errorf("%q: kind %v, want %v", c.in, got.Kind, c.kind)
            continue
        }
        if c.kind == DeadlineResolved && !got.At.Equal(c.at) {
            t.Errorf("%q: at %v, want %v", c.in, got.At, c.at)
        }
        if c.kind == DeadlineLabel && got.Text != c.in {
            t.Errorf("%q: label text %q", c.in, got.Text)
        }
    }
}

func TestParseDeadlineEmpty(t *testing.T) {
    got := ParseDeadline("   ", time.Now(), time.Local)
    if got.Kind != DeadlineLabel || got.Text != "" {
        t.Fatalf("blank input: %+v", got)
    }
}
