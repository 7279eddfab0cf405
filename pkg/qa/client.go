package qa

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/itb-chat/pkg/chat"
)

// Answer is a successful reply of the question-answering service.
type Answer struct {
	Text     string
	HasLinks bool
	Links    []chat.LinkGroup

	// Diagnostic fields some backends attach; never shown in the conversation.
	Intent     string
	Source     string
	Confidence float64
}

// Client performs one remote call per question. Implementations return a
// *TransportError or *ProtocolError on failure and own any timeout policy.
type Client interface {
	Ask(ctx context.Context, question string) (Answer, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, question string) (Answer, error)

func (f ClientFunc) Ask(ctx context.Context, question string) (Answer, error) {
	return f(ctx, question)
}

// AsAsker adapts a Client to the dispatcher's Asker.
func AsAsker(c Client) chat.Asker {
	return chat.AskerFunc(func(ctx context.Context, question string) (chat.Reply, error) {
		ans, err := c.Ask(ctx, question)
		if err != nil {
			return chat.Reply{}, err
		}
		if ans.Intent != "" || ans.Source != "" {
			log.Debug().
				Str("component", "qa").
				Str("intent", ans.Intent).
				Str("source", ans.Source).
				Float64("confidence", ans.Confidence).
				Msg("qa answer metadata")
		}
		return chat.Reply{Text: ans.Text, HasLinks: ans.HasLinks, Links: ans.Links}, nil
	})
}
