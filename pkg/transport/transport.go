package transport

import "context"

// Kind is the shape of an inbound message event (§6).
type Kind string

const (
	KindText  Kind = "text"
	KindMedia Kind = "media"
	KindImage Kind = "image"
)

// MediaRef is an opaque reference to inbound media, resolved by an
// external media handler before being re-enqueued as text (§6).
type MediaRef struct {
	Reference string
}

// InboundEvent is one message event consumed from the chat transport
// (§6). Events with FromSelf=true are discarded by the caller.
type InboundEvent struct {
	MessageID     string
	ChatID        string
	IsGroup       bool
	DisplayName   string
	SenderID      string
	SenderDisplay string
	FromSelf      bool
	Kind          Kind
	Body          string
	Media         *MediaRef
}

// Outbound is the transport's send-side contract (§6). The transport is
// expected to deliver in submission order within a single chat; Outbound
// implementations are not required to be safe for unsynchronized
// concurrent use across chats unless documented otherwise.
type Outbound interface {
	Send(ctx context.Context, chatID, text string) error
	SendMedia(ctx context.Context, chatID string, data []byte, mimetype, caption string) error
}

// Inbound is the transport's receive-side contract (§6): a stream of
// message events.
type Inbound interface {
	Events() <-chan InboundEvent
}
