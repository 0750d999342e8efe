package outcome

import (
	"context"
	"regexp"

	"github.com/relaybroker/broker/pkg/learning"
)

// Result is the outcome of one reasoner execution, as seen by the
// Outcome Analyzer (§4.6).
type Result struct {
	Success bool
	Output  string
	Error   string
}

// Analysis is the §4.6 analyze contract's return value.
type Analysis struct {
	RetryEligible      bool
	RememberedSolution *learning.Lesson
	FailureClass       string
}

// LessonFinder is the Learning Store capability the analyzer depends on.
type LessonFinder interface {
	FindLessonsForError(ctx context.Context, errorMessage string, limit int) ([]learning.Lesson, error)
}

type failureClass struct {
	name    string
	pattern *regexp.Regexp
}

// failureClasses is the ordered list of canonical failure shapes (§4.6).
// Order matters only in that the first matching class names the failure;
// the remembered-lesson lookup is keyed off the raw error text regardless
// of which class matched.
var failureClasses = []failureClass{
	{"selector-not-found", regexp.MustCompile(`(?i)selector.*not found|no such selector`)},
	{"element-not-found", regexp.MustCompile(`(?i)element.*not found|no such element`)},
	{"wait-timeout", regexp.MustCompile(`(?i)wait.*timed? ?out|timeout.*wait`)},
	{"module-not-found", regexp.MustCompile(`(?i)module.*not found|cannot find module`)},
	{"import-error", regexp.MustCompile(`(?i)import ?error|failed to import`)},
	{"type-error", regexp.MustCompile(`(?i)type ?error`)},
}

// Analyzer is the Outcome Analyzer (C6). It has no side effects other
// than its Learning-Store queries (§4.6).
type Analyzer struct {
	store LessonFinder
}

// NewAnalyzer builds an Analyzer backed by store.
func NewAnalyzer(store LessonFinder) *Analyzer {
	return &Analyzer{store: store}
}

// Analyze matches result.Error against the ordered canonical failure
// classes. On a match it queries the Learning Store for a remembered
// solution; finding one recommends retry, finding none returns the
// failure class without recommending retry and without a remembered
// solution. A failure that matches no known class never recommends retry
// (§4.6).
func (a *Analyzer) Analyze(ctx context.Context, result Result, payload string) Analysis {
	if result.Success || result.Error == "" {
		return Analysis{RetryEligible: false}
	}

	class, ok := classify(result.Error)
	if !ok {
		return Analysis{RetryEligible: false}
	}

	lessons, err := a.store.FindLessonsForError(ctx, result.Error, 5)
	if err != nil || len(lessons) == 0 {
		return Analysis{RetryEligible: false, FailureClass: class}
	}

	return Analysis{
		RetryEligible:      true,
		RememberedSolution: &lessons[0],
		FailureClass:       class,
	}
}

func classify(errorText string) (string, bool) {
	for _, fc := range failureClasses {
		if fc.pattern.MatchString(errorText) {
			return fc.name, true
		}
	}
	return "", false
}
