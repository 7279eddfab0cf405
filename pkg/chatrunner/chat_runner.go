package chatrunner

import (
	"bufio"
	"context"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/itb-chat/pkg/chat"
	"github.com/go-go-golems/itb-chat/pkg/events"
	"github.com/go-go-golems/itb-chat/pkg/qa"
	"github.com/go-go-golems/itb-chat/pkg/render"
	"github.com/go-go-golems/itb-chat/pkg/ui"
)

// RunMode defines the execution mode for the chat session.
type RunMode string

const (
	RunModeChat     RunMode = "chat"
	RunModePlain    RunMode = "plain"
	RunModeBlocking RunMode = "blocking"
)

// ErrUnanswered is returned by blocking runs whose question got the apology.
var ErrUnanswered = errors.New("question could not be answered")

// ChatSession holds the validated configuration and executes one chat
// session. It's typically created by the ChatBuilder.
type ChatSession struct {
	ctx            context.Context
	client         qa.Client
	bus            *events.Bus
	ownsBus        bool
	group          string
	uiOptions      []ui.ModelOption
	programOptions []tea.ProgramOption
	dispatchOpts   []chat.DispatcherOption
	mode           RunMode
	input          io.Reader
	outputWriter   io.Writer
	question       string
}

// Run executes the chat session based on its configured mode. The session
// is closed when Run returns.
func (cs *ChatSession) Run() error {
	if cs.ownsBus {
		defer func() {
			if err := cs.bus.Close(); err != nil {
				log.Warn().Err(err).Msg("could not close event bus")
			}
		}()
	}

	session := chat.NewSession(chat.WithSink(cs.bus.Sink()))
	defer session.Close()
	d := chat.NewDispatcher(session, qa.AsAsker(cs.client), cs.dispatchOpts...)
	log.Debug().Str("session_id", session.ID()).Str("mode", string(cs.mode)).Msg("chat session created")

	switch cs.mode {
	case RunModeChat:
		return cs.runChatInternal(d)
	case RunModePlain:
		return cs.runPlainInternal(d)
	case RunModeBlocking:
		return cs.runBlockingInternal(d)
	default:
		return errors.Errorf("unknown run mode: %v", cs.mode)
	}
}

// runChatInternal runs the terminal UI. Session events travel over the bus
// and are injected into the program by a forwarder goroutine.
func (cs *ChatSession) runChatInternal(d *chat.Dispatcher) error {
	session := d.Session()

	eg, childCtx := errgroup.WithContext(cs.ctx)
	childCtx, cancel := context.WithCancel(childCtx)
	defer cancel()

	if err := cs.bus.EnsureGroupAtTail(childCtx, session.ID(), cs.group); err != nil {
		return err
	}
	ch, err := cs.bus.Subscribe(childCtx, session.ID())
	if err != nil {
		return err
	}

	backend := ui.NewBackend(childCtx, d)
	model := ui.NewChatModel(session, backend, cs.uiOptions...)
	opts := append([]tea.ProgramOption{tea.WithContext(childCtx)}, cs.programOptions...)
	p := tea.NewProgram(model, opts...)

	eg.Go(func() error {
		log.Debug().Str("component", "chatrunner").Msg("starting event forwarder")
		events.Forward(childCtx, ch, ui.ForwardFunc(p))
		log.Debug().Str("component", "chatrunner").Msg("event forwarder stopped")
		return nil
	})

	eg.Go(func() error {
		defer cancel()
		log.Debug().Str("component", "chatrunner").Msg("starting Bubble Tea program")
		_, runErr := p.Run()
		log.Debug().Err(runErr).Str("component", "chatrunner").Msg("Bubble Tea program finished")
		if runErr != nil && (errors.Is(runErr, tea.ErrProgramKilled) || errors.Is(runErr, context.Canceled)) && childCtx.Err() != nil {
			return nil
		}
		return runErr
	})

	err = eg.Wait()
	if errors.Is(err, context.Canceled) && cs.ctx.Err() == context.Canceled {
		return nil
	}
	return err
}

// runPlainInternal reads one question per line and prints the messages
// each dispatch added. Used when stdin is not a terminal.
func (cs *ChatSession) runPlainInternal(d *chat.Dispatcher) error {
	session := d.Session()
	if err := render.WriteText(cs.outputWriter, render.Build(session.Snapshot()).Nodes); err != nil {
		return errors.Wrap(err, "failed to write output")
	}

	scanner := bufio.NewScanner(cs.input)
	for scanner.Scan() {
		if cs.ctx.Err() != nil {
			return nil
		}
		before := session.Len()
		res := d.Submit(cs.ctx, scanner.Text())
		if res.Outcome == chat.OutcomeSkipped {
			continue
		}
		if res.Err != nil {
			log.Debug().Err(res.Err).Str("outcome", string(res.Outcome)).Msg("dispatch failed")
		}
		nodes := render.Build(session.Snapshot()).Nodes
		if before < len(nodes) {
			nodes = nodes[before:]
		}
		if err := render.WriteText(cs.outputWriter, nodes); err != nil {
			return errors.Wrap(err, "failed to write output")
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "failed to read input")
	}
	return nil
}

// runBlockingInternal asks a single question and prints the conversation.
func (cs *ChatSession) runBlockingInternal(d *chat.Dispatcher) error {
	res := d.Submit(cs.ctx, cs.question)
	switch res.Outcome {
	case chat.OutcomeSkipped:
		return errors.New("question is empty")
	case chat.OutcomeAbandoned:
		return nil
	}

	if err := render.WriteText(cs.outputWriter, render.Build(d.Session().Snapshot()).Nodes); err != nil {
		return errors.Wrap(err, "failed to write output")
	}
	if res.Outcome == chat.OutcomeFailed {
		if errors.Is(res.Err, context.Canceled) && cs.ctx.Err() == context.Canceled {
			return nil
		}
		log.Debug().Err(res.Err).Msg("blocking question failed")
		return ErrUnanswered
	}
	return nil
}

// --- ChatBuilder ---

// ChatBuilder provides a fluent API for configuring and running a chat session.
type ChatBuilder struct {
	err            error // To collect errors during build steps
	ctx            context.Context
	client         qa.Client
	bus            *events.Bus
	group          string
	uiOptions      []ui.ModelOption
	programOptions []tea.ProgramOption
	dispatchOpts   []chat.DispatcherOption
	mode           RunMode
	input          io.Reader
	outputWriter   io.Writer
	question       string
}

// NewChatBuilder creates a new builder with default settings.
func NewChatBuilder() *ChatBuilder {
	return &ChatBuilder{
		ctx:            context.Background(),
		group:          events.DefaultSettings().RedisGroup,
		programOptions: []tea.ProgramOption{tea.WithAltScreen()},
		input:          os.Stdin,
		outputWriter:   os.Stdout,
		mode:           RunModeChat,
	}
}

func (b *ChatBuilder) WithContext(ctx context.Context) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if ctx == nil {
		b.err = errors.New("context cannot be nil")
		return b
	}
	b.ctx = ctx
	return b
}

// WithClient sets the question-answering client. (Required)
func (b *ChatBuilder) WithClient(client qa.Client) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if client == nil {
		b.err = errors.New("client cannot be nil")
		return b
	}
	b.client = client
	return b
}

// WithBus provides an event bus owned by the caller. Without it an
// in-memory bus is created and closed by the session.
func (b *ChatBuilder) WithBus(bus *events.Bus, consumerGroup string) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.bus = bus
	if consumerGroup != "" {
		b.group = consumerGroup
	}
	return b
}

func (b *ChatBuilder) WithUIOptions(opts ...ui.ModelOption) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.uiOptions = append(b.uiOptions, opts...)
	return b
}

// WithProgramOptions replaces the bubbletea program options.
func (b *ChatBuilder) WithProgramOptions(opts ...tea.ProgramOption) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.programOptions = opts
	return b
}

func (b *ChatBuilder) WithDispatcherOptions(opts ...chat.DispatcherOption) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.dispatchOpts = append(b.dispatchOpts, opts...)
	return b
}

// WithMode sets the execution mode (chat, plain, blocking).
func (b *ChatBuilder) WithMode(mode RunMode) *ChatBuilder {
	if b.err != nil {
		return b
	}
	switch mode {
	case RunModeChat, RunModePlain, RunModeBlocking:
		b.mode = mode
	default:
		b.err = errors.Errorf("invalid run mode: %s", mode)
	}
	return b
}

// WithInput sets the reader used by plain mode. Defaults to os.Stdin.
func (b *ChatBuilder) WithInput(r io.Reader) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if r == nil {
		b.err = errors.New("input reader cannot be nil")
		return b
	}
	b.input = r
	return b
}

// WithOutputWriter sets the writer for plain and blocking modes.
// Defaults to os.Stdout.
func (b *ChatBuilder) WithOutputWriter(w io.Writer) *ChatBuilder {
	if b.err != nil {
		return b
	}
	if w == nil {
		b.err = errors.New("output writer cannot be nil")
		return b
	}
	b.outputWriter = w
	return b
}

// WithQuestion sets the question asked in blocking mode.
func (b *ChatBuilder) WithQuestion(q string) *ChatBuilder {
	if b.err != nil {
		return b
	}
	b.question = q
	return b
}

func (b *ChatBuilder) Build() (*ChatSession, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.client == nil {
		return nil, errors.New("client is required (use WithClient)")
	}
	if b.mode == "" {
		return nil, errors.New("run mode is required (use WithMode)")
	}

	bus, ownsBus := b.bus, false
	if bus == nil {
		bus, ownsBus = events.NewInMemoryBus(events.NewWatermillLogger(log.Logger)), true
	}

	return &ChatSession{
		ctx:            b.ctx,
		client:         b.client,
		bus:            bus,
		ownsBus:        ownsBus,
		group:          b.group,
		uiOptions:      b.uiOptions,
		programOptions: b.programOptions,
		dispatchOpts:   b.dispatchOpts,
		mode:           b.mode,
		input:          b.input,
		outputWriter:   b.outputWriter,
		question:       b.question,
	}, nil
}
