package render

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-go-golems/itb-chat/pkg/chat"
)

const (
	UserLabel = "Anda"
	BotLabel  = "Bot"
)

func SenderLabel(s chat.Sender) string {
	if s == chat.SenderUser {
		return UserLabel
	}
	return BotLabel
}

// Text renders a view as plain text, one block per node.
func Text(v View) string {
	var buf bytes.Buffer
	_ = WriteText(&buf, v.Nodes)
	return buf.String()
}

func WriteText(w io.Writer, nodes []Node) error {
	for _, n := range nodes {
		if err := writeNode(w, n); err != nil {
			return err
		}
	}
	return nil
}

func writeNode(w io.Writer, n Node) error {
	var err error
	switch n.Kind {
	case NodeEmpty:
		_, err = fmt.Fprintf(w, "(%s)\n", n.Text)
	case NodeTyping:
		_, err = fmt.Fprintf(w, "... %s\n", n.Text)
	case NodeLinks:
		if _, err = fmt.Fprintf(w, "%s %s: Tautan terkait\n", marker(n), SenderLabel(n.Sender)); err != nil {
			return err
		}
		for _, g := range n.Groups {
			if _, err = fmt.Fprintf(w, "    [%s] %s\n", g.Category, g.Content); err != nil {
				return err
			}
			for _, l := range g.Links {
				if _, err = fmt.Fprintf(w, "      - %s <%s>\n", l.Label, l.URL); err != nil {
					return err
				}
			}
		}
	default:
		_, err = fmt.Fprintf(w, "%s %s: %s\n", marker(n), SenderLabel(n.Sender), n.Text)
	}
	return err
}

func marker(n Node) string {
	if n.Align == AlignRight {
		return ">"
	}
	return "<"
}
