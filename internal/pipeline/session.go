package pipeline

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/kayz/perplex/internal/conversation"
	"github.com/kayz/perplex/internal/logger"
	"github.com/kayz/perplex/internal/output"
	"github.com/kayz/perplex/internal/persist"
)

// Recorder stores answered turns. It is optional.
type Recorder interface {
	Record(ctx context.Context, r persist.AuditRecord) error
}

const (
	topQueryPrompt = "🤔 Query: "
	followUpPrompt = "🔁 Follow-up (Enter for a new topic, exit to quit): "
)

// Session is the interactive read-answer loop.
type Session struct {
	Pipeline  *Pipeline
	Machine   *conversation.Machine
	Printer   *output.Printer
	In        io.Reader
	Audit     Recorder
	SessionID string
	Now       func() time.Time

	turns int
}

// Run reads lines until exit, end of input, or ctx cancellation. None of these is an error.
func (s *Session) Run(ctx context.Context) error {
	if s.Now == nil {
		s.Now = time.Now
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := readLines(ctx, s.In)

	s.Printer.Banner()
	for {
		switch s.Machine.State() {
		case conversation.AwaitingFollowUp:
			s.Printer.Prompt(followUpPrompt)
		default:
			s.Printer.Prompt(topQueryPrompt)
		}

		var line string
		select {
		case <-ctx.Done():
			s.Printer.Print("")
			s.Printer.Print("👋 Exiting... 👋")
			return nil
		case l, ok := <-lines:
			if !ok {
				s.Printer.Print("")
				s.Printer.Print("👋 Exiting... 👋")
				return nil
			}
			line = l
		}

		step, err := s.Machine.Submit(line)
		if err != nil {
			return err
		}

		switch step.Action {
		case conversation.Ignore:
			continue
		case conversation.Exit:
			s.Printer.Print("👋 Exiting... 👋")
			return nil
		case conversation.NewTopic:
			s.Printer.Notice("🆕 Conversation cleared. Starting a new topic.")
			continue
		}

		history := s.Machine.History()
		res := s.Pipeline.Answer(ctx, step.Query, history)
		if ctx.Err() != nil {
			s.Printer.Print("👋 Exiting... 👋")
			return nil
		}

		s.Printer.Answer(res.Answer.Text)
		s.Printer.Separator()

		turn := conversation.Turn{Timestamp: s.Now(), Query: step.Query, Response: res.Answer.Text}
		if err := s.Machine.Complete(turn); err != nil {
			return err
		}
		s.turns++
		s.audit(ctx, turn, res)
	}
}

func (s *Session) audit(ctx context.Context, turn conversation.Turn, res Result) {
	if s.Audit == nil {
		return
	}
	sources := 0
	for _, o := range res.Outcomes {
		if o.OK() {
			sources++
		}
	}
	err := s.Audit.Record(ctx, persist.AuditRecord{
		SessionID: s.SessionID,
		TurnNo:    s.turns,
		CreatedAt: turn.Timestamp,
		Query:     turn.Query,
		Prompt:    res.Prompt,
		Response:  turn.Response,
		Sources:   sources,
	})
	if err != nil {
		logger.Warn("Failed to write audit record: %v", err)
	}
}

// readLines delivers input lines until EOF or until ctx is done, whichever comes first.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case ch <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Warn("Reading input failed: %v", err)
		}
	}()
	return ch
}
