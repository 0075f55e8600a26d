package lib

import (
    "errors"
    "time"
)

// Flow and state identifiers of the conversation machine. Each flow owns a
// closed set of states; transitions live in the step tables in flow.go.
type FlowKind string

const (
    FlowCreate   FlowKind = "create"
    FlowEdit     FlowKind = "edit"
    FlowComplete FlowKind = "complete"
    FlowTake     FlowKind = "take"
    FlowAbsent   FlowKind = "absent"
)

type State string

const (
    StateCreateTitle    State = "create_title"
    StateCreateDesc     State = "create_desc"
    StateCreateAssignee State = "create_assignee"
    StateCreateDeadline State = "create_deadline"
    StateCreatePhoto    State = "create_photo"

    StateEditTitle    State = "edit_title"
    StateEditDesc     State = "edit_desc"
    StateEditDeadline State = "edit_deadline"
    StateEditAssignee State = "edit_assignee"

    StateCompleteResult State = "complete_result"
    StateCompletePhoto  State = "complete_photo"

    StateTakeViewing State = "take_viewing"
    StateTakeResult  State = "take_result"
    StateTakeMedia   State = "take_media"

    StateAbsentReason State = "absent_reason"
)

// Draft accumulates the fields a dialogue collects before its terminal commit.
type Draft struct {
    TaskID       int64      `json:"task_id"`
    Participant  string     `json:"participant"`
    Title        string     `json:"title"`
    Description  string     `json:"description"`
    Assignee     string     `json:"assignee"`
    DeadlineText string     `json:"deadline_text"`
    DeadlineAt   *time.Time `json:"deadline_at"`
    PhotoFileID  string     `json:"photo_file_id"`
    ResultText   string     `json:"result_text"`
    ResultFileID string     `json:"result_file_id"`
    Touched      map[string]bool `json:"touched"`
}

func (d *Draft) touch(field string) {
    if d.Touched == nil { d.Touched = map[string]bool{} }
    d.Touched[field] = true
}

const (
    TitleMinLen   = 3
    TitleMaxLen   = 100
    DescMaxLen    = 500
    ResultMaxLen  = 1000
    DefaultResult = "Выполнено без комментария"
)

var (
    ErrUnknownParticipant = errors.New("participant not in roster")
    ErrBadCallback        = errors.New("unparseable callback token")
)
