package config

import "time"

// Defaults holds system-wide defaults applied when YAML omits a value.
type Defaults struct {
	ApprovalTimeout         int           `yaml:"approval_timeout,omitempty"`
	QueueSoftBound          int           `yaml:"queue_soft_bound,omitempty"`
	ItemDeadline            time.Duration `yaml:"item_deadline,omitempty"`
	ShutdownDrain           time.Duration `yaml:"shutdown_drain,omitempty"`
	ProgressMinInterval     time.Duration `yaml:"progress_min_interval,omitempty"`
	ReplyMaxBytes           int           `yaml:"reply_max_bytes,omitempty"`
	TaskHistoryMaxBytes     int           `yaml:"task_history_max_bytes,omitempty"`
	RetryBound              int           `yaml:"retry_bound,omitempty"`
	LessonQueryLimit        int           `yaml:"lesson_query_limit,omitempty"`
}

// DefaultDefaults returns the built-in system defaults, used as the mergo
// base so that any field left unset in defaults.yaml keeps its built-in
// value rather than zeroing out.
func DefaultDefaults() *Defaults {
	return &Defaults{
		ApprovalTimeout:     300,
		QueueSoftBound:      16,
		ItemDeadline:        10 * time.Minute,
		ShutdownDrain:       30 * time.Second,
		ProgressMinInterval: 1500 * time.Millisecond,
		ReplyMaxBytes:       4000,
		TaskHistoryMaxBytes: 10000,
		RetryBound:          1,
		LessonQueryLimit:    3,
	}
}
