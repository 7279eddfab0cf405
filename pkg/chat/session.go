package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Session holds one conversation: the append-only log, the draft input
// buffer and the busy flag guarding single-flight dispatch.
type Session struct {
	id string

	mu    sync.Mutex
	log   []Message
	draft string
	busy  bool
	live  bool
	seq   uint64

	sinks []Sink
	now   func() time.Time
}

type SessionOption func(*Session)

// WithSessionID overrides the generated session id.
func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithSink registers an observer for session events.
func WithSink(sink Sink) SessionOption {
	return func(s *Session) {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
}

func withClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession starts a session with an empty log, an empty draft and busy=false.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		id:   uuid.NewString(),
		live: true,
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) AppendUserMessage(text string) {
	s.append(Message{Sender: SenderUser, Kind: KindText, Text: text})
}

func (s *Session) AppendBotText(text string) {
	s.append(Message{Sender: SenderBot, Kind: KindText, Text: text})
}

func (s *Session) AppendBotLinks(links []LinkGroup) {
	s.append(Message{Sender: SenderBot, Kind: KindLinkList, Links: links})
}

// SetBusy is idempotent; setting the current value emits nothing.
func (s *Session) SetBusy(flag bool) {
	s.mu.Lock()
	ev, ok := s.setBusyLocked(flag)
	s.mu.Unlock()
	if ok {
		s.emit(ev)
	}
}

func (s *Session) ClearDraft() { s.SetDraft("") }

// SetDraft records the text currently being typed.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	ev, ok := s.setDraftLocked(text)
	s.mu.Unlock()
	if ok {
		s.emit(ev)
	}
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log)
}

// Live reports whether the session has not been closed yet.
func (s *Session) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Messages returns a copy of the log.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messagesLocked()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		SessionID: s.id,
		Log:       s.messagesLocked(),
		Draft:     s.draft,
		Busy:      s.busy,
	}
}

// Close tears the session down. Every later mutation is a no-op, which is
// what an in-flight dispatch relies on when it resumes.
func (s *Session) Close() {
	s.mu.Lock()
	if !s.live {
		s.mu.Unlock()
		return
	}
	s.live = false
	ev := s.eventLocked(EventClosed)
	s.mu.Unlock()
	s.emit(ev)
}

// begin runs the optimistic part of a dispatch in one critical section:
// append the user message, clear the draft, set busy. It refuses when the
// session is busy or closed.
func (s *Session) begin(text string) bool {
	s.mu.Lock()
	if !s.live || s.busy {
		s.mu.Unlock()
		return false
	}
	evs := make([]Event, 0, 3)
	if ev, ok := s.appendLocked(Message{Sender: SenderUser, Kind: KindText, Text: text}); ok {
		evs = append(evs, ev)
	}
	if ev, ok := s.setDraftLocked(""); ok {
		evs = append(evs, ev)
	}
	if ev, ok := s.setBusyLocked(true); ok {
		evs = append(evs, ev)
	}
	s.mu.Unlock()

	for _, ev := range evs {
		s.emit(ev)
	}
	return true
}

// appendReply appends the messages of one answer in a single critical
// section. It reports false, appending nothing, when the session is closed.
func (s *Session) appendReply(msgs ...Message) bool {
	s.mu.Lock()
	if !s.live {
		s.mu.Unlock()
		return false
	}
	evs := make([]Event, 0, len(msgs))
	for _, m := range msgs {
		if ev, ok := s.appendLocked(m); ok {
			evs = append(evs, ev)
		}
	}
	s.mu.Unlock()

	for _, ev := range evs {
		s.emit(ev)
	}
	return true
}

func (s *Session) append(m Message) {
	s.mu.Lock()
	ev, ok := s.appendLocked(m)
	s.mu.Unlock()
	if ok {
		s.emit(ev)
	}
}

func (s *Session) appendLocked(m Message) (Event, bool) {
	if !s.live {
		return Event{}, false
	}
	s.log = append(s.log, m.clone())
	return s.eventLocked(EventMessageAppended), true
}

func (s *Session) setBusyLocked(flag bool) (Event, bool) {
	if !s.live || s.busy == flag {
		return Event{}, false
	}
	s.busy = flag
	return s.eventLocked(EventBusyChanged), true
}

func (s *Session) setDraftLocked(text string) (Event, bool) {
	if !s.live || s.draft == text {
		return Event{}, false
	}
	s.draft = text
	return s.eventLocked(EventDraftChanged), true
}

func (s *Session) messagesLocked() []Message {
	out := make([]Message, len(s.log))
	for i, m := range s.log {
		out[i] = m.clone()
	}
	return out
}

func (s *Session) eventLocked(t EventType) Event {
	s.seq++
	return Event{
		SessionID: s.id,
		Seq:       s.seq,
		Type:      t,
		LogLen:    len(s.log),
		Busy:      s.busy,
		Time:      s.now(),
	}
}

func (s *Session) emit(ev Event) {
	for _, sink := range s.sinks {
		if err := sink.Publish(ev); err != nil {
			log.Warn().Err(err).
				Str("session_id", ev.SessionID).
				Str("event", string(ev.Type)).
				Msg("failed to publish session event")
		}
	}
}
