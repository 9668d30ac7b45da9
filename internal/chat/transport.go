package chat

import (
	"context"
	"sync"
)

// Button is one inline keyboard button; Data is the callback payload
// delivered back when the user presses it.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Keyboard is rows of buttons attached to an outbound message.
type Keyboard [][]Button

// IncomingFile is a document or photo attached to an inbound update.
type IncomingFile struct {
	Name string
	Data []byte
}

// Update is one inbound user action, already decoded from whatever
// transport delivered it.
type Update struct {
	ChatID       string
	Text         string
	CallbackData string
	File         *IncomingFile
}

// Sender delivers a message to a chat. Implementations must be safe for
// concurrent use.
type Sender interface {
	Send(ctx context.Context, chatID, text string, keyboard Keyboard) error
}

// OutboundMessage is a queued message waiting for transport delivery.
type OutboundMessage struct {
	ChatID   string   `json:"chat_id"`
	Text     string   `json:"text"`
	Keyboard Keyboard `json:"keyboard,omitempty"`
}

// Outbox is a Sender that queues messages per chat until the transport
// drains them (the webhook handler returns the requester's queue in its
// response; other chats poll theirs).
type Outbox struct {
	mu     sync.Mutex
	byChat map[string][]OutboundMessage
}

func NewOutbox() *Outbox {
	return &Outbox{byChat: make(map[string][]OutboundMessage)}
}

func (o *Outbox) Send(ctx context.Context, chatID, text string, keyboard Keyboard) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.byChat[chatID] = append(o.byChat[chatID], OutboundMessage{
		ChatID:   chatID,
		Text:     text,
		Keyboard: keyboard,
	})
	return nil
}

// Drain removes and returns every queued message for a chat.
func (o *Outbox) Drain(chatID string) []OutboundMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := o.byChat[chatID]
	delete(o.byChat, chatID)
	return msgs
}
