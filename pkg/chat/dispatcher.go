package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Asker is the part of the question-answering client the dispatcher needs.
// qa.AsAsker adapts a qa.Client to it.
type Asker interface {
	Ask(ctx context.Context, question string) (Reply, error)
}

// Reply is what a successful ask yields to the dispatcher.
type Reply struct {
	Text     string
	HasLinks bool
	Links    []LinkGroup
}

type AskerFunc func(ctx context.Context, question string) (Reply, error)

func (f AskerFunc) Ask(ctx context.Context, question string) (Reply, error) {
	return f(ctx, question)
}

type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeAnswered  Outcome = "answered"
	OutcomeFailed    Outcome = "failed"
	OutcomeAbandoned Outcome = "abandoned"
)

// Result describes how a submit settled. Err holds the internal cause of a
// failure; it is meant for logs and exit codes, never for the conversation.
type Result struct {
	Outcome  Outcome
	Question string
	Err      error
}

// Dispatcher runs send cycles against one session.
type Dispatcher struct {
	session *Session
	asker   Asker
	apology string
}

type DispatcherOption func(*Dispatcher)

// WithApology overrides the text appended when a question fails.
func WithApology(text string) DispatcherOption {
	return func(d *Dispatcher) {
		if text != "" {
			d.apology = text
		}
	}
}

func NewDispatcher(session *Session, asker Asker, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		session: session,
		asker:   asker,
		apology: DefaultApology,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Dispatcher) Session() *Session { return d.session }

// Submit runs a complete dispatch and blocks until it settles.
func (d *Dispatcher) Submit(ctx context.Context, raw string) Result {
	p, ok := d.Begin(raw)
	if !ok {
		return Result{Outcome: OutcomeSkipped}
	}
	return p.Run(ctx)
}

// Begin validates the input and, if accepted, appends the user message,
// clears the draft and marks the session busy before returning. The caller
// must then call Run exactly once. Empty input or a busy session yields
// (nil, false) without touching the session.
func (d *Dispatcher) Begin(raw string) (*Dispatch, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}
	if !d.session.begin(trimmed) {
		log.Debug().
			Str("component", "dispatcher").
			Str("session_id", d.session.ID()).
			Msg("submit ignored, dispatch already in flight")
		return nil, false
	}
	return &Dispatch{d: d, question: trimmed}, true
}

// Dispatch is one accepted send attempt awaiting its remote result.
type Dispatch struct {
	d        *Dispatcher
	question string

	once   sync.Once
	result Result
}

func (p *Dispatch) Question() string { return p.question }

// Run asks the service and appends the reply or the apology. The busy flag
// is released on every exit path, including a panicking Asker.
func (p *Dispatch) Run(ctx context.Context) Result {
	p.once.Do(func() {
		p.result = p.run(ctx)
	})
	return p.result
}

func (p *Dispatch) run(ctx context.Context) (res Result) {
	s := p.d.session
	res.Question = p.question

	defer s.SetBusy(false)
	defer func() {
		if r := recover(); r != nil {
			res.Err = errors.Errorf("qa client panicked: %v", r)
			res.Outcome = p.fail()
		}
		var ev *zerolog.Event
		if res.Err != nil {
			ev = log.Warn().Err(res.Err)
		} else {
			ev = log.Debug()
		}
		ev.
			Str("component", "dispatcher").
			Str("session_id", s.ID()).
			Int("question_len", len(p.question)).
			Str("outcome", string(res.Outcome)).
			Msg("dispatch settled")
	}()

	reply, err := p.d.asker.Ask(ctx, p.question)
	if err != nil {
		res.Err = err
		res.Outcome = p.fail()
		return res
	}

	msgs := []Message{{Sender: SenderBot, Kind: KindText, Text: reply.Text}}
	if reply.HasLinks && len(reply.Links) > 0 {
		msgs = append(msgs, Message{Sender: SenderBot, Kind: KindLinkList, Links: reply.Links})
	}
	if !s.appendReply(msgs...) {
		res.Outcome = OutcomeAbandoned
		return res
	}
	res.Outcome = OutcomeAnswered
	return res
}

func (p *Dispatch) fail() Outcome {
	if !p.d.session.appendReply(Message{Sender: SenderBot, Kind: KindText, Text: p.d.apology}) {
		return OutcomeAbandoned
	}
	return OutcomeFailed
}
