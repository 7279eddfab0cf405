package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/itb-chat/pkg/chat"
)

// DispatchFinishedMsg is delivered when a dispatch started by Backend settles.
type DispatchFinishedMsg struct {
	Result chat.Result
}

// SessionChangedMsg tells the model that the session changed and the view
// must be rebuilt from a fresh snapshot.
type SessionChangedMsg struct {
	Event chat.Event
}

// Backend runs dispatches for the bubbletea program.
type Backend struct {
	ctx        context.Context
	dispatcher *chat.Dispatcher
}

func NewBackend(ctx context.Context, d *chat.Dispatcher) *Backend {
	return &Backend{ctx: ctx, dispatcher: d}
}

// Start performs the synchronous part of a dispatch (append, clear draft,
// set busy) on the caller's goroutine and returns a tea.Cmd running the
// remote call. It returns nil when the input is rejected.
func (b *Backend) Start(raw string) tea.Cmd {
	p, ok := b.dispatcher.Begin(raw)
	if !ok {
		return nil
	}
	log.Debug().
		Str("component", "ui_backend").
		Str("session_id", b.dispatcher.Session().ID()).
		Int("question_len", len(p.Question())).
		Msg("dispatch started")
	ctx := b.ctx
	return func() tea.Msg {
		res := p.Run(ctx)
		return DispatchFinishedMsg{Result: res}
	}
}

// IsFinished reports whether no dispatch is in flight.
func (b *Backend) IsFinished() bool {
	return !b.dispatcher.Session().Busy()
}

// ForwardFunc turns session events into bubbletea messages injected into p.
func ForwardFunc(p *tea.Program) func(ev chat.Event) {
	return func(ev chat.Event) {
		log.Trace().
			Str("component", "ui_forwarder").
			Str("session_id", ev.SessionID).
			Str("event", string(ev.Type)).
			Uint64("seq", ev.Seq).
			Msg("dispatching session event to UI")
		p.Send(SessionChangedMsg{Event: ev})
	}
}
