package conversation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTransition is returned when an event does not apply to the current state.
var ErrInvalidTransition = errors.New("invalid conversation transition")

const exitCommand = "exit"

type State int

const (
	AwaitingTopQuery State = iota
	ProcessingInitial
	AwaitingFollowUp
	ProcessingFollowUp
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingTopQuery:
		return "awaiting_top_query"
	case ProcessingInitial:
		return "processing_initial"
	case AwaitingFollowUp:
		return "awaiting_follow_up"
	case ProcessingFollowUp:
		return "processing_follow_up"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Awaiting reports whether the machine is waiting for user input.
func (s State) Awaiting() bool {
	return s == AwaitingTopQuery || s == AwaitingFollowUp
}

// Action tells the caller what to do after an input was submitted.
type Action int

const (
	// Ignore means the input was empty at the top level; prompt again.
	Ignore Action = iota
	// Run means answer Step.Query, then call Complete.
	Run
	// NewTopic means the log was cleared; prompt for a fresh query.
	NewTopic
	// Exit means the session is over.
	Exit
)

type Step struct {
	Action Action
	Query  string
	From   State
	To     State
}

// Machine drives the follow-up flow. It is not safe for concurrent use.
type Machine struct {
	state   State
	log     *Log
	window  int
	history []Turn
}

// NewMachine returns a machine that injects at most window turns into follow-ups.
func NewMachine(log *Log, window int) *Machine {
	if log == nil {
		log = &Log{}
	}
	if window < 0 {
		window = 0
	}
	return &Machine{state: AwaitingTopQuery, log: log, window: window}
}

func (m *Machine) State() State { return m.state }

func (m *Machine) Log() *Log { return m.log }

// History is the window captured when the current follow-up was submitted.
// It is nil while processing an initial query.
func (m *Machine) History() []Turn { return m.history }

// Submit feeds one line of user input to an awaiting state.
func (m *Machine) Submit(input string) (Step, error) {
	from := m.state
	if !from.Awaiting() {
		return Step{From: from, To: from}, fmt.Errorf("%w: input while %s", ErrInvalidTransition, from)
	}

	query := strings.TrimSpace(input)
	switch {
	case strings.EqualFold(query, exitCommand):
		m.state = Terminated
		m.history = nil
		return Step{Action: Exit, From: from, To: m.state}, nil

	case query == "" && from == AwaitingTopQuery:
		return Step{Action: Ignore, From: from, To: from}, nil

	case query == "":
		m.log.Reset()
		m.history = nil
		m.state = AwaitingTopQuery
		return Step{Action: NewTopic, From: from, To: m.state}, nil

	case from == AwaitingTopQuery:
		m.history = nil
		m.state = ProcessingInitial
		return Step{Action: Run, Query: query, From: from, To: m.state}, nil

	default:
		m.history = m.log.Last(m.window)
		m.state = ProcessingFollowUp
		return Step{Action: Run, Query: query, From: from, To: m.state}, nil
	}
}

// Complete records the answered turn and returns to awaiting a follow-up.
func (m *Machine) Complete(turn Turn) error {
	if m.state != ProcessingInitial && m.state != ProcessingFollowUp {
		return fmt.Errorf("%w: complete while %s", ErrInvalidTransition, m.state)
	}
	m.log.Append(turn)
	m.history = nil
	m.state = AwaitingFollowUp
	return nil
}
