package reasoner

import "context"

// Options carries opaque tool-configuration and extra CLI arguments
// passed through to the external reasoner process (§6).
type Options struct {
	ToolConfigPath string
	ExtraArgs      []string
}

// ProgressEvent is one free-form progress update emitted by the reasoner
// during a call (§6). A line beginning with "APPROVAL_REQUIRED:" is a
// structured marker for an out-of-band approval request.
type ProgressEvent struct {
	Text string
}

// ApprovalMarkerPrefix identifies a progress line carrying an
// out-of-band approval request (§6).
const ApprovalMarkerPrefix = "APPROVAL_REQUIRED:"

// ProgressSink receives ProgressEvents as the reasoner call is underway.
type ProgressSink func(ProgressEvent)

// Result is the reasoner's response (§6).
type Result struct {
	Success           bool
	Output            string
	Error             string
	ReasonerSessionID string
}

// Reasoner is the external reasoner contract (§6): invoked with a
// prompt, options, and a progress sink; cancellable via ctx.
type Reasoner interface {
	Execute(ctx context.Context, prompt string, opts Options, sink ProgressSink) (Result, error)
}
