package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultDefaults(t *testing.T) {
	d := DefaultDefaults()
	assert.Equal(t, 300, d.ApprovalTimeout)
	assert.Equal(t, 16, d.QueueSoftBound)
	assert.Equal(t, 10*time.Minute, d.ItemDeadline)
	assert.Equal(t, 30*time.Second, d.ShutdownDrain)
	assert.Equal(t, 1500*time.Millisecond, d.ProgressMinInterval)
	assert.Equal(t, 4000, d.ReplyMaxBytes)
	assert.Equal(t, 10000, d.TaskHistoryMaxBytes)
	assert.Equal(t, 1, d.RetryBound)
	assert.Equal(t, 3, d.LessonQueryLimit)
}
