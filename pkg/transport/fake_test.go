package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeOutboundRecordsSubmissionOrder(t *testing.T) {
	f := NewFakeOutbound()
	ctx := context.Background()

	require.NoError(t, f.Send(ctx, "C1", "A"))
	require.NoError(t, f.Send(ctx, "C1", "B"))
	require.NoError(t, f.Send(ctx, "C1", "C"))

	msgs := f.MessagesFor("C1")
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{msgs[0].Text, msgs[1].Text, msgs[2].Text})
}

func TestFakeOutboundFailNextSend(t *testing.T) {
	f := NewFakeOutbound()
	ctx := context.Background()

	f.FailNextSend(1)
	err := f.Send(ctx, "C1", "A")
	require.Error(t, err)

	require.NoError(t, f.Send(ctx, "C1", "B"))
	assert.Len(t, f.MessagesFor("C1"), 1)
}
