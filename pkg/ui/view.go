package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/itb-chat/pkg/render"
)

func (m ChatModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(Title))
	b.WriteString("\n")
	b.WriteString(m.vp.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status))
	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(m.keys.helpLine()))
	}
	return b.String()
}

// bubbleWidth caps message bubbles at 70% of the terminal width.
func (m ChatModel) bubbleWidth() int {
	w := m.width * 7 / 10
	if w < 20 {
		w = 20
	}
	return w
}

func (m ChatModel) renderNodes(v render.View) string {
	if len(v.Nodes) == 1 && v.Nodes[0].Kind == render.NodeEmpty {
		return lipgloss.Place(m.width, m.vp.Height, lipgloss.Center, lipgloss.Center, emptyStyle.Render(v.Nodes[0].Text))
	}
	blocks := make([]string, 0, len(v.Nodes))
	for _, n := range v.Nodes {
		blocks = append(blocks, m.renderNode(n))
	}
	return strings.Join(blocks, "\n")
}

func (m ChatModel) renderNode(n render.Node) string {
	switch n.Kind {
	case render.NodeTyping:
		return m.spinner.View() + " " + typingStyle.Render(n.Text)
	case render.NodeLinks:
		return m.place(n, m.renderLinks(n))
	default:
		return m.place(n, m.renderText(n))
	}
}

func (m ChatModel) renderText(n render.Node) string {
	if n.Align == render.AlignLeft && m.md != nil {
		out, err := m.md.Render(n.Text)
		if err == nil {
			return strings.Trim(out, "\n")
		}
	}
	return lipgloss.NewStyle().Width(m.bubbleWidth() - 4).Render(n.Text)
}

func (m ChatModel) renderLinks(n render.Node) string {
	var lines []string
	lines = append(lines, "Tautan terkait")
	for _, g := range n.Groups {
		lines = append(lines, "")
		lines = append(lines, categoryStyle.Render(g.Category))
		if g.Content != "" {
			lines = append(lines, lipgloss.NewStyle().Width(m.bubbleWidth()-4).Render(g.Content))
		}
		// the full URL goes on its own wrapped line so it is never truncated
		for _, l := range g.Links {
			lines = append(lines, "• "+hostStyle.Render(l.Label))
			lines = append(lines, urlStyle.Width(m.bubbleWidth()-4).Render(l.URL))
		}
	}
	return strings.Join(lines, "\n")
}

func (m ChatModel) place(n render.Node, body string) string {
	style := botBubbleStyle
	pos := lipgloss.Left
	if n.Align == render.AlignRight {
		style = userBubbleStyle
		pos = lipgloss.Right
	}
	label := senderStyle.Render(render.SenderLabel(n.Sender))
	bubble := lipgloss.JoinVertical(pos, label, style.MaxWidth(m.bubbleWidth()).Render(body))
	return lipgloss.PlaceHorizontal(m.width, pos, bubble)
}
