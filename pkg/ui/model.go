package ui

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/itb-chat/pkg/chat"
	"github.com/go-go-golems/itb-chat/pkg/render"
)

const (
	Title       = "Chatbot Informasi Khusus ITB"
	Placeholder = "Ketik pesan..."

	defaultWidth  = 80
	defaultHeight = 24
)

// ChatModel is the bubbletea model of one chat session. It owns the
// keystrokes and mirrors them into the session draft; everything shown in
// the log area is rebuilt from render.Build on each session change.
type ChatModel struct {
	session *chat.Session
	backend *Backend
	keys    keyMap

	input   textinput.Model
	vp      viewport.Model
	spinner spinner.Model

	markdown bool
	mdStyle  string
	md       *glamour.TermRenderer

	copy     func(string) error
	showHelp bool
	status   string

	width  int
	height int
}

var _ tea.Model = ChatModel{}

type ModelOption func(*ChatModel)

// WithMarkdown renders bot answers with glamour using the given style.
func WithMarkdown(enabled bool, style string) ModelOption {
	return func(m *ChatModel) {
		m.markdown = enabled
		if style != "" {
			m.mdStyle = style
		}
	}
}

func WithHelp(show bool) ModelOption {
	return func(m *ChatModel) { m.showHelp = show }
}

// WithClipboard replaces the function used to copy the last answer.
func WithClipboard(copyFn func(string) error) ModelOption {
	return func(m *ChatModel) {
		if copyFn != nil {
			m.copy = copyFn
		}
	}
}

func NewChatModel(session *chat.Session, backend *Backend, opts ...ModelOption) ChatModel {
	ti := textinput.New()
	ti.Placeholder = Placeholder
	ti.Prompt = "› "
	ti.CharLimit = 0
	ti.SetValue(session.Draft())
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := ChatModel{
		session:  session,
		backend:  backend,
		keys:     defaultKeyMap(),
		input:    ti,
		spinner:  sp,
		mdStyle:  "dark",
		copy:     clipboard.WriteAll,
		showHelp: true,
	}
	for _, o := range opts {
		o(&m)
	}
	m.resize(defaultWidth, defaultHeight)
	m.refresh()
	return m
}

func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch ev := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(ev.Width, ev.Height)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(ev, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(ev, m.keys.Send):
			return m.send()
		case key.Matches(ev, m.keys.Copy):
			m.copyLastAnswer()
			return m, nil
		case key.Matches(ev, m.keys.ScrollUp), key.Matches(ev, m.keys.ScrollDown):
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		before := m.input.Value()
		m.input, cmd = m.input.Update(msg)
		if v := m.input.Value(); v != before {
			m.session.SetDraft(v)
			m.status = ""
		}
		return m, cmd

	case SessionChangedMsg:
		m.refresh()
		return m, nil

	case DispatchFinishedMsg:
		if ev.Result.Err != nil {
			log.Debug().Err(ev.Result.Err).Str("outcome", string(ev.Result.Outcome)).Msg("UI: dispatch failed")
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if m.backend.IsFinished() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m ChatModel) send() (tea.Model, tea.Cmd) {
	cmd := m.backend.Start(m.input.Value())
	if cmd == nil {
		// rejected: the input stays as typed
		return m, nil
	}
	m.input.SetValue(m.session.Draft())
	m.status = ""
	m.refresh()
	return m, tea.Batch(cmd, m.spinner.Tick)
}

func (m *ChatModel) copyLastAnswer() {
	msgs := m.session.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Sender == chat.SenderBot && msgs[i].Kind == chat.KindText {
			if err := m.copy(msgs[i].Text); err != nil {
				log.Warn().Err(err).Msg("could not copy answer to clipboard")
				m.status = "Gagal menyalin jawaban."
				return
			}
			m.status = "Jawaban disalin."
			return
		}
	}
	m.status = "Belum ada jawaban untuk disalin."
}

func (m *ChatModel) resize(width, height int) {
	m.width, m.height = width, height
	vpHeight := height - m.chromeHeight()
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.vp = viewport.New(width, vpHeight)
	m.input.Width = width - 4
	m.md = nil
	if m.markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.mdStyle),
			glamour.WithWordWrap(m.bubbleWidth()-4),
		)
		if err != nil {
			log.Warn().Err(err).Str("style", m.mdStyle).Msg("markdown renderer unavailable, using plain text")
		} else {
			m.md = r
		}
	}
}

// title, input, status and help lines
func (m ChatModel) chromeHeight() int {
	h := 3
	if m.showHelp {
		h++
	}
	return h
}

func (m *ChatModel) refresh() {
	v := render.Build(m.session.Snapshot())
	follow := m.vp.AtBottom() || v.Typing()
	m.vp.SetContent(m.renderNodes(v))
	if follow {
		m.vp.GotoBottom()
	}
}
