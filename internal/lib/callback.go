package lib

import (
    "fmt"
    "regexp"
    "strconv"
    "strings"
)

// Verb enumerates every button command the bot understands. Callback tokens
// are parsed into a Command exactly once at the transport boundary; handler
// code never splits strings again.
type Verb string

const (
    VerbMenuMain     Verb = "menu_main"
    VerbMenuCreate   Verb = "menu_create"
    VerbMenuTasks    Verb = "menu_tasks"
    VerbMenuComplete Verb = "menu_complete"
    VerbMenuHelp     Verb = "menu_help"

    VerbTaskView     Verb = "task_view"
    VerbTaskEdit     Verb = "task_edit"
    VerbTaskComplete Verb = "task_complete"
    VerbTaskDelete   Verb = "task_delete"
    VerbTaskToggle   Verb = "task_tgl"
    VerbConfirmDel   Verb = "confirm_delete"
    VerbCancelDel    Verb = "cancel_delete"

    VerbWorkTake Verb = "work_take"
    VerbWorkFast Verb = "work_fast"

    VerbWeeklyToggle Verb = "wk"

    VerbAssign Verb = "asg"

    VerbFlowSkip   Verb = "flow_skip"
    VerbFlowNext   Verb = "flow_next"
    VerbFlowCancel Verb = "flow_cancel"

    VerbPresenceHere   Verb = "pres_here"
    VerbPresenceLate   Verb = "pres_late"
    VerbPresenceAbsent Verb = "pres_absent"
    VerbDelay          Verb = "delay"
)

type Command struct {
    Verb        Verb
    TaskID      int64
    Day         int
    Seq         int
    Participant string
    Assignee    string
    Minutes     int
}

var participantRx = regexp.MustCompile(`^[A-Z]{2}$`)

// ParseCommand decodes an underscore-delimited callback token. An unknown
// verb or malformed payload yields ErrBadCallback; the caller answers with a
// visible notice and mutates nothing.
func ParseCommand(data string) (Command, error) {
    switch Verb(data) {
    case VerbMenuMain, VerbMenuCreate, VerbMenuTasks, VerbMenuComplete, VerbMenuHelp,
        VerbFlowSkip, VerbFlowNext, VerbFlowCancel,
        VerbPresenceHere, VerbPresenceLate, VerbPresenceAbsent:
        return Command{Verb: Verb(data)}, nil
    }

    if rest, ok := strings.CutPrefix(data, "delay_"); ok {
        m, err := strconv.Atoi(rest)
        if err != nil || m <= 0 { return Command{}, badToken(data) }
        return Command{Verb: VerbDelay, Minutes: m}, nil
    }

    if rest, ok := strings.CutPrefix(data, "asg_"); ok {
        if rest == "" { return Command{}, badToken(data) }
        return Command{Verb: VerbAssign, Assignee: rest}, nil
    }

    if rest, ok := strings.CutPrefix(data, "wk_"); ok {
        parts := strings.Split(rest, "_")
        if len(parts) != 3 || !participantRx.MatchString(parts[2]) {
            return Command{}, badToken(data)
        }
        day, err1 := strconv.Atoi(parts[0])
        seq, err2 := strconv.Atoi(parts[1])
        if err1 != nil || err2 != nil || day < 0 || day > 6 || seq < 1 {
            return Command{}, badToken(data)
        }
        return Command{Verb: VerbWeeklyToggle, Day: day, Seq: seq, Participant: parts[2]}, nil
    }

    for _, v := range []Verb{VerbTaskToggle, VerbWorkTake} {
        if rest, ok := strings.CutPrefix(data, string(v)+"_"); ok {
            parts := strings.Split(rest, "_")
            if len(parts) != 2 || !participantRx.MatchString(parts[1]) {
                return Command{}, badToken(data)
            }
            id, err := strconv.ParseInt(parts[0], 10, 64)
            if err != nil { return Command{}, badToken(data) }
            return Command{Verb: v, TaskID: id, Participant: parts[1]}, nil
        }
    }

    for _, v := range []Verb{VerbTaskView, VerbTaskEdit, VerbTaskComplete, VerbTaskDelete,
        VerbConfirmDel, VerbCancelDel, VerbWorkFast} {
        if rest, ok := strings.CutPrefix(data, string(v)+"_"); ok {
            id, err := strconv.ParseInt(rest, 10, 64)
            if err != nil { return Command{}, badToken(data) }
            return Command{Verb: v, TaskID: id}, nil
        }
    }

    return Command{}, badToken(data)
}

func badToken(data string) error {
    return fmt.Errorf("%w: %q", ErrBadCallback, data)
}

// Token renders a Command back into its callback string; keyboards use it so
// that producer and parser cannot drift apart.
func (c Command) Token() string {
    switch c.Verb {
    case VerbDelay:
        return fmt.Sprintf("delay_%d", c.Minutes)
    case VerbAssign:
        return "asg_" + c.Assignee
    case VerbWeeklyToggle:
        return fmt.Sprintf("wk_%d_%d_%s", c.Day, c.Seq, c.Participant)
    case VerbTaskToggle, VerbWorkTake:
        return fmt.Sprintf("%s_%d_%s", c.Verb, c.TaskID, c.Participant)
    case VerbTaskView, VerbTaskEdit, VerbTaskComplete, VerbTaskDelete,
        VerbConfirmDel, VerbCancelDel, VerbWorkFast:
        return fmt.Sprintf("%s_%d", c.Verb, c.TaskID)
    default:
        return string(c.Verb)
    }
}
