package learning

import "time"

// Lesson is a durable record of a past task outcome (§3).
type Lesson struct {
	ID                    int64
	TaskType              string
	Category              string
	Tags                  []string
	TaskDescription       string
	Success               bool
	ErrorMessage          string
	ErrorPattern          string
	RootCause             string
	Solution              string
	LessonSummary         string
	AttemptsBeforeSuccess int
	TimeToResolutionMs    int64
	RelevanceScore        float64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TaskHistory is an append-only record of one dispatch (§3).
type TaskHistory struct {
	ID         int64
	TaskType   string
	PersonaID  string
	Category   string
	ChatID     string
	Success    bool
	DurationMs int64
	Output     string
	LessonIDs  []int64
	CreatedAt  time.Time
}

// LessonFilter is a partial-match query over lessons (§4.1 query_lessons).
type LessonFilter struct {
	TaskType             string
	Category             string
	Success              *bool
	ErrorPatternContains string
	SearchText           string
	Limit                int
}

// Stats reports aggregate counts (§4.1 stats).
type Stats struct {
	Total      int
	Successful int
	Failed     int
	Unavailable bool
}
