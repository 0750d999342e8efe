package transport

import (
	"context"
	"sync"
)

// SentMessage records one Send or SendMedia call observed by FakeOutbound.
type SentMessage struct {
	ChatID   string
	Text     string
	Media    []byte
	MimeType string
	Caption  string
}

// FakeOutbound is an in-memory Outbound used by tests to assert on
// submission order and content without a real chat transport.
type FakeOutbound struct {
	mu       sync.Mutex
	sent     []SentMessage
	failNext int
}

// NewFakeOutbound returns a ready FakeOutbound.
func NewFakeOutbound() *FakeOutbound {
	return &FakeOutbound{}
}

func (f *FakeOutbound) Send(ctx context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return errSendFailed
	}
	f.sent = append(f.sent, SentMessage{ChatID: chatID, Text: text})
	return nil
}

func (f *FakeOutbound) SendMedia(ctx context.Context, chatID string, data []byte, mimetype, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, SentMessage{ChatID: chatID, Media: data, MimeType: mimetype, Caption: caption})
	return nil
}

// FailNextSend makes the next n Send calls fail, to exercise §7's
// retry-once-then-record-and-proceed reply path.
func (f *FakeOutbound) FailNextSend(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = n
}

// Messages returns every message sent so far, in submission order.
func (f *FakeOutbound) Messages() []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

// MessagesFor returns every message sent to chatID, in submission order.
func (f *FakeOutbound) MessagesFor(chatID string) []SentMessage {
	var out []SentMessage
	for _, m := range f.Messages() {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

type sendFailedError struct{}

func (sendFailedError) Error() string { return "simulated transport send failure" }

var errSendFailed = sendFailedError{}
