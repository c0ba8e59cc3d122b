// Package notify delivers account notifications such as email confirmation links.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type Notifier interface {
	SendConfirmation(ctx context.Context, recipient, link string) error
	SendPasswordReset(ctx context.Context, recipient, link string) error
}

const (
	KindConfirmation  = "confirmation"
	KindPasswordReset = "password_reset"
)

// LogNotifier writes notifications to the log instead of sending mail.
type LogNotifier struct {
	from string
	log  *zap.Logger
}

func NewLogNotifier(from string, log *zap.Logger) *LogNotifier {
	return &LogNotifier{from: from, log: log}
}

func (n *LogNotifier) send(kind, recipient, link string) error {
	n.log.Info("outgoing email",
		zap.String("kind", kind),
		zap.String("from", n.from),
		zap.String("to", recipient),
		zap.String("link", link),
	)
	return nil
}

func (n *LogNotifier) SendConfirmation(_ context.Context, recipient, link string) error {
	return n.send(KindConfirmation, recipient, link)
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, recipient, link string) error {
	return n.send(KindPasswordReset, recipient, link)
}

type Message struct {
	Kind      string
	Recipient string
	Link      string
}

// Recorder keeps every notification in memory; tests use it to pick up links.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (r *Recorder) record(kind, recipient, link string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.messages = append(r.messages, Message{Kind: kind, Recipient: recipient, Link: link})
	return nil
}

func (r *Recorder) SendConfirmation(_ context.Context, recipient, link string) error {
	return r.record(KindConfirmation, recipient, link)
}

func (r *Recorder) SendPasswordReset(_ context.Context, recipient, link string) error {
	return r.record(KindPasswordReset, recipient, link)
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent message of the given kind sent to recipient.
func (r *Recorder) Last(kind, recipient string) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].Recipient == recipient && r.messages[i].Kind == kind {
			return r.messages[i], true
		}
	}
	return Message{}, false
}
