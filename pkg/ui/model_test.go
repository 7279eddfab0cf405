package ui

import (
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/itb-chat/pkg/chat"
	"github.com/go-go-golems/itb-chat/pkg/render"
)

func newTestModel(t *testing.T, asker chat.Asker, opts ...ModelOption) (ChatModel, *chat.Session) {
	t.Helper()
	s := chat.NewSession()
	b := NewBackend(context.Background(), chat.NewDispatcher(s, asker))
	opts = append([]ModelOption{WithMarkdown(false, ""), WithClipboard(func(string) error { return nil })}, opts...)
	m := NewChatModel(s, b, opts...)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(ChatModel), s
}

func typeText(t *testing.T, m ChatModel, text string) ChatModel {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(ChatModel)
}

// runCmd executes cmd and any batched children, returning the messages
// that are not spinner ticks.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if _, ok := msg.(spinner.TickMsg); ok {
		return nil
	}
	return []tea.Msg{msg}
}

func TestChatModel_EmptyState(t *testing.T) {
	m, _ := newTestModel(t, chat.AskerFunc(nil))
	v := m.View()
	require.Contains(t, v, Title)
	require.Contains(t, v, render.EmptyText)
	require.Contains(t, v, Placeholder)
}

func TestChatModel_TypingMirrorsDraft(t *testing.T) {
	m, s := newTestModel(t, chat.AskerFunc(nil))
	m = typeText(t, m, "Apa itu ITB?")
	require.Equal(t, "Apa itu ITB?", s.Draft())
	require.Equal(t, 0, s.Len())
}

func TestChatModel_SendCycle(t *testing.T) {
	release := make(chan struct{})
	m, s := newTestModel(t, chat.AskerFunc(func(context.Context, string) (chat.Reply, error) {
		<-release
		return chat.Reply{
			Text:     "ITB memiliki 12 fakultas...",
			HasLinks: true,
			Links: []chat.LinkGroup{{
				Category: "Fakultas",
				Content:  "Daftar fakultas ITB",
				URLs:     []string{"https://www.itb.ac.id/fakultas"},
			}},
		}, nil
	}))
	m = typeText(t, m, "Fakultas di ITB")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(ChatModel)
	require.NotNil(t, cmd)
	require.True(t, s.Busy())
	require.Equal(t, 1, s.Len())
	require.Equal(t, "", s.Draft())
	require.Equal(t, "", m.input.Value())
	require.Contains(t, m.View(), render.TypingText)
	require.Contains(t, m.View(), "Fakultas di ITB")

	// a second enter while busy does nothing and keeps the typed text
	m = typeText(t, m, "lagi")
	next, cmd2 := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(ChatModel)
	require.Nil(t, cmd2)
	require.Equal(t, "lagi", m.input.Value())
	require.Equal(t, 1, s.Len())

	close(release)
	msgs := runCmd(cmd)
	require.Len(t, msgs, 1)
	finished, ok := msgs[0].(DispatchFinishedMsg)
	require.True(t, ok)
	require.Equal(t, chat.OutcomeAnswered, finished.Result.Outcome)

	next, _ = m.Update(finished)
	m = next.(ChatModel)
	require.False(t, s.Busy())
	require.Equal(t, 3, s.Len())
	view := m.View()
	require.NotContains(t, view, render.TypingText)
	require.Contains(t, view, "ITB memiliki 12 fakultas...")
	require.Contains(t, view, "itb.ac.id")
	require.Contains(t, view, "Fakultas")
}

func TestChatModel_EmptyEnterIsIgnored(t *testing.T) {
	m, s := newTestModel(t, chat.AskerFunc(nil))
	m = typeText(t, m, "   ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.Nil(t, cmd)
	require.Equal(t, 0, s.Len())
	require.Equal(t, "   ", s.Draft())
}

func TestChatModel_FailureShowsApology(t *testing.T) {
	m, s := newTestModel(t, chat.AskerFunc(func(context.Context, string) (chat.Reply, error) {
		return chat.Reply{}, errors.New("connection refused")
	}))
	m = typeText(t, m, "halo")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(ChatModel)
	for _, msg := range runCmd(cmd) {
		next, _ = m.Update(msg)
		m = next.(ChatModel)
	}
	require.False(t, s.Busy())
	require.Contains(t, m.View(), chat.DefaultApology)
	require.NotContains(t, m.View(), "connection refused")
}

func TestChatModel_SessionChangedRefreshes(t *testing.T) {
	m, s := newTestModel(t, chat.AskerFunc(nil))
	s.AppendBotText("dari luar")
	require.NotContains(t, m.View(), "dari luar")
	next, _ := m.Update(SessionChangedMsg{Event: chat.Event{SessionID: s.ID()}})
	require.Contains(t, next.(ChatModel).View(), "dari luar")
}

func TestChatModel_CopyLastAnswer(t *testing.T) {
	var copied string
	m, s := newTestModel(t, chat.AskerFunc(nil), WithClipboard(func(text string) error {
		copied = text
		return nil
	}))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	require.Equal(t, "", copied)
	require.Contains(t, next.(ChatModel).View(), "Belum ada jawaban")

	s.AppendBotText("jawaban pertama")
	s.AppendBotLinks([]chat.LinkGroup{{Category: "c"}})
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	require.Equal(t, "jawaban pertama", copied)
	require.Contains(t, next.(ChatModel).View(), "Jawaban disalin.")
}

func TestChatModel_Quit(t *testing.T) {
	m, _ := newTestModel(t, chat.AskerFunc(nil))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestChatModel_MarkdownRendering(t *testing.T) {
	m, s := newTestModel(t, chat.AskerFunc(nil), WithMarkdown(true, "notty"))
	require.NotNil(t, m.md)
	s.AppendBotText("**ITB** didirikan 1920")
	next, _ := m.Update(SessionChangedMsg{})
	view := next.(ChatModel).View()
	require.Contains(t, view, "didirikan 1920")
}

func TestBackend_IsFinished(t *testing.T) {
	s := chat.NewSession()
	b := NewBackend(context.Background(), chat.NewDispatcher(s, chat.AskerFunc(func(context.Context, string) (chat.Reply, error) {
		return chat.Reply{Text: "ok"}, nil
	})))
	require.True(t, b.IsFinished())
	cmd := b.Start("q")
	require.NotNil(t, cmd)
	require.False(t, b.IsFinished())
	require.Nil(t, b.Start("again"))
	msg := cmd()
	require.Equal(t, chat.OutcomeAnswered, msg.(DispatchFinishedMsg).Result.Outcome)
	require.True(t, b.IsFinished())
}

// joinWrapped glues the visible lines of a view back together, dropping
// bubble borders and padding so wrapped text can be matched whole.
func joinWrapped(view string) string {
	var b strings.Builder
	for _, line := range strings.Split(ansi.Strip(view), "\n") {
		b.WriteString(strings.Trim(line, " │\u00a0"))
	}
	return b.String()
}

func TestChatModel_LongLinkIsNotTruncated(t *testing.T) {
	const long = "https://www.itb.ac.id/berita/detail/12345/pengumuman-penerimaan-mahasiswa-baru-program-sarjana-2026"
	m, s := newTestModel(t, chat.AskerFunc(nil))
	s.AppendBotLinks([]chat.LinkGroup{{Category: "Berita", Content: "Pengumuman penerimaan", URLs: []string{long}}})

	next, _ := m.Update(SessionChangedMsg{})
	refreshed := next.(ChatModel)
	require.Contains(t, joinWrapped(refreshed.View()), long)
	for _, line := range strings.Split(refreshed.vp.View(), "\n") {
		require.LessOrEqual(t, ansi.StringWidth(line), 100)
	}
}

func TestChatModel_LongQuestionIsSentWhole(t *testing.T) {
	question := strings.Repeat("a", 1500)
	asked := make(chan string, 1)
	m, s := newTestModel(t, chat.AskerFunc(func(_ context.Context, q string) (chat.Reply, error) {
		asked <- q
		return chat.Reply{Text: "ok"}, nil
	}))
	m = typeText(t, m, question)
	require.Equal(t, question, s.Draft())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(cmd)
	require.Equal(t, question, <-asked)
	require.Equal(t, question, s.Messages()[0].Text)
}
