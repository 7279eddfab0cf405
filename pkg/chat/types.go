package chat

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Kind discriminates the payload carried by a Message.
type Kind string

const (
	KindText     Kind = "text"
	KindLinkList Kind = "link_list"
)

// DefaultApology is the only text appended when a question could not be answered.
const DefaultApology = "Gagal menghubungi server."

// LinkGroup is a named cluster of related URLs attached to a bot reply.
type LinkGroup struct {
	Category string   `json:"category"`
	Content  string   `json:"content"`
	URLs     []string `json:"links"`
}

// Message is one entry of the conversation log.
// Text is set for KindText, Links for KindLinkList.
type Message struct {
	Sender Sender      `json:"sender"`
	Kind   Kind        `json:"kind"`
	Text   string      `json:"text,omitempty"`
	Links  []LinkGroup `json:"links,omitempty"`
}

func (m Message) IsUser() bool { return m.Sender == SenderUser }

func (m Message) clone() Message {
	m.Links = cloneLinkGroups(m.Links)
	return m
}

func cloneLinkGroups(groups []LinkGroup) []LinkGroup {
	if groups == nil {
		return nil
	}
	out := make([]LinkGroup, len(groups))
	for i, g := range groups {
		out[i] = LinkGroup{
			Category: g.Category,
			Content:  g.Content,
			URLs:     append([]string(nil), g.URLs...),
		}
	}
	return out
}

// Snapshot is a deep copy of a session's state, safe to hand to readers.
type Snapshot struct {
	SessionID string
	Log       []Message
	Draft     string
	Busy      bool
}
