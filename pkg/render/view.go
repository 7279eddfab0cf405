// Package render derives what a chat front end displays from a session
// snapshot. Build is pure: it never mutates its input and returns the same
// View for the same Snapshot.
package render

import (
	"net/url"
	"strings"

	"github.com/go-go-golems/itb-chat/pkg/chat"
)

const (
	EmptyText  = "Belum ada pesan"
	TypingText = "Bot sedang mengetik..."
)

type NodeKind string

const (
	NodeEmpty  NodeKind = "empty"
	NodeText   NodeKind = "text"
	NodeLinks  NodeKind = "links"
	NodeTyping NodeKind = "typing"
)

type Align string

const (
	AlignLeft   Align = "left"
	AlignRight  Align = "right"
	AlignCenter Align = "center"
)

type LinkView struct {
	// URL is the stored target, unchanged.
	URL string
	// Label is the bare hostname shown to the user.
	Label string
}

type GroupView struct {
	Category string
	Content  string
	Links    []LinkView
}

type Node struct {
	Kind   NodeKind
	Sender chat.Sender
	Align  Align
	Text   string
	Groups []GroupView
}

type View struct {
	Nodes []Node
}

// Typing reports whether the view ends with the transient typing node.
func (v View) Typing() bool {
	return len(v.Nodes) > 0 && v.Nodes[len(v.Nodes)-1].Kind == NodeTyping
}

func Build(s chat.Snapshot) View {
	if len(s.Log) == 0 && !s.Busy {
		return View{Nodes: []Node{{Kind: NodeEmpty, Align: AlignCenter, Text: EmptyText}}}
	}

	nodes := make([]Node, 0, len(s.Log)+1)
	for _, m := range s.Log {
		nodes = append(nodes, messageNode(m))
	}
	if s.Busy {
		nodes = append(nodes, Node{Kind: NodeTyping, Sender: chat.SenderBot, Align: AlignLeft, Text: TypingText})
	}
	return View{Nodes: nodes}
}

func messageNode(m chat.Message) Node {
	n := Node{Sender: m.Sender, Align: AlignLeft}
	if m.IsUser() {
		n.Align = AlignRight
	}
	switch m.Kind {
	case chat.KindLinkList:
		n.Kind = NodeLinks
		n.Groups = make([]GroupView, 0, len(m.Links))
		for _, g := range m.Links {
			gv := GroupView{Category: g.Category, Content: g.Content, Links: make([]LinkView, 0, len(g.URLs))}
			for _, u := range g.URLs {
				gv.Links = append(gv.Links, LinkView{URL: u, Label: HostLabel(u)})
			}
			n.Groups = append(n.Groups, gv)
		}
	default:
		n.Kind = NodeText
		n.Text = m.Text
	}
	return n
}

// HostLabel returns the hostname of rawURL without a leading "www.".
// Values that do not parse as a URL with a host are returned as is.
func HostLabel(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())
	if trimmed := strings.TrimPrefix(host, "www."); trimmed != "" {
		host = trimmed
	}
	return host
}
