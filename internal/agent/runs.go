package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RunState is the lifecycle state of one remote assistant run.
type RunState string

const (
	RunQueued    RunState = "queued"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
	RunCanceled  RunState = "canceled"
	RunTimedOut  RunState = "timed_out"
)

var (
	ErrRunFailed   = errors.New("assistant run failed")
	ErrRunCanceled = errors.New("assistant run canceled")
	ErrRunTimedOut = errors.New("assistant run timed out")
)

const (
	defaultPollInterval = time.Second
	defaultRunDeadline  = 60 * time.Second
	analyzeTimeout      = 20 * time.Second
	analyzeAttempts     = 3
)

// ThreadRunner is the thread-and-run side of the model provider.
type ThreadRunner interface {
	CreateThread(ctx context.Context) (string, error)
	DeleteThread(ctx context.Context, threadID string) error
	AddUserMessage(ctx context.Context, threadID, content string) error
	StartRun(ctx context.Context, threadID, assistantID, instructions string) (string, error)
	RunStatus(ctx context.Context, threadID, runID string) (string, error)
	CancelRun(ctx context.Context, threadID, runID string) error
	LatestAssistantReply(ctx context.Context, threadID string) (string, error)
	AssistantReplies(ctx context.Context, threadID string) ([]string, error)
}

// classifyRunStatus maps a provider status string onto the run state
// machine. Unknown statuses count as still running so the poll loop keeps
// watching until the deadline.
func classifyRunStatus(status string) RunState {
	switch status {
	case "queued":
		return RunQueued
	case "completed":
		return RunCompleted
	case "failed", "expired", "incomplete", "requires_action":
		return RunFailed
	case "cancelled", "cancelling":
		return RunCanceled
	default:
		return RunRunning
	}
}

// pollRun watches a remote run until it reaches a terminal state, the
// deadline passes or ctx is canceled. On cancellation or timeout it issues a
// best-effort remote cancel so the provider stops billing the run.
func pollRun(ctx context.Context, runner ThreadRunner, threadID, runID string, interval, deadline time.Duration) (RunState, error) {
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := runner.RunStatus(runCtx, threadID, runID)
		if err != nil {
			if runCtx.Err() != nil {
				return abandonRun(ctx, runner, threadID, runID)
			}
			return RunFailed, fmt.Errorf("poll run %q: %w", runID, err)
		}

		switch state := classifyRunStatus(status); state {
		case RunCompleted:
			return RunCompleted, nil
		case RunFailed:
			return RunFailed, fmt.Errorf("%w: status %q", ErrRunFailed, status)
		case RunCanceled:
			return RunCanceled, ErrRunCanceled
		}

		select {
		case <-runCtx.Done():
			return abandonRun(ctx, runner, threadID, runID)
		case <-ticker.C:
		}
	}
}

// abandonRun cancels the remote run after the local wait has ended. The
// cancel uses a fresh short-lived context because the caller's is already
// done.
func abandonRun(parent context.Context, runner ThreadRunner, threadID, runID string) (RunState, error) {
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), 5*time.Second)
	defer cancel()
	if err := runner.CancelRun(cancelCtx, threadID, runID); err != nil {
		// Likely already terminal on the provider side.
		slog.Debug("remote run cancel failed", "run_id", runID, "error", err)
	}

	if parent.Err() != nil {
		return RunCanceled, fmt.Errorf("%w: %w", ErrRunCanceled, parent.Err())
	}
	return RunTimedOut, ErrRunTimedOut
}

// ThreadReply is one parsed assistant reply: the spoken response, the
// follow-up question and the video segment cue embedded in the raw text.
type ThreadReply struct {
	Response string
	Question string
	Segment  string
}

// Assistants runs the thread-based interviewer, coaching assistant and
// post-interview analyzer. Stateless; the thread id carries all state.
type Assistants struct {
	runner        ThreadRunner
	interviewerID string
	assistantID   string
	analyzerID    string
	pollInterval  time.Duration
	runDeadline   time.Duration
	analyzeWindow time.Duration
	logger        *slog.Logger

	stateObserver func(RunState)
}

func NewAssistants(runner ThreadRunner, interviewerID, assistantID, analyzerID string, logger *slog.Logger) *Assistants {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistants{
		runner:        runner,
		interviewerID: interviewerID,
		assistantID:   assistantID,
		analyzerID:    analyzerID,
		pollInterval:  defaultPollInterval,
		runDeadline:   defaultRunDeadline,
		analyzeWindow: analyzeTimeout,
		logger:        logger,
	}
}

// SetStateObserver registers a callback invoked with the terminal state of
// every run the service drives.
func (a *Assistants) SetStateObserver(fn func(RunState)) {
	a.stateObserver = fn
}

func (a *Assistants) observeState(state RunState) {
	if a.stateObserver != nil {
		a.stateObserver(state)
	}
}

func (a *Assistants) NewThread(ctx context.Context) (string, error) {
	return a.runner.CreateThread(ctx)
}

func (a *Assistants) CloseThread(ctx context.Context, threadID string) error {
	return a.runner.DeleteThread(ctx, threadID)
}

// InterviewerReply asks the interviewer persona the next question.
func (a *Assistants) InterviewerReply(ctx context.Context, threadID, question, instructions string) (*ThreadReply, error) {
	return a.askThread(ctx, threadID, a.interviewerID, question, instructions)
}

// AssistantReply asks the coaching persona.
func (a *Assistants) AssistantReply(ctx context.Context, threadID, question, instructions string) (*ThreadReply, error) {
	return a.askThread(ctx, threadID, a.assistantID, question, instructions)
}

func (a *Assistants) askThread(ctx context.Context, threadID, assistantID, question, instructions string) (*ThreadReply, error) {
	if err := a.runner.AddUserMessage(ctx, threadID, question); err != nil {
		return nil, err
	}
	runID, err := a.runner.StartRun(ctx, threadID, assistantID, instructions)
	if err != nil {
		return nil, err
	}

	state, err := pollRun(ctx, a.runner, threadID, runID, a.pollInterval, a.runDeadline)
	a.observeState(state)
	if err != nil {
		a.logger.Warn("assistant run did not complete", "thread_id", threadID, "run_id", runID, "state", string(state), "error", err)
		return nil, err
	}

	raw, err := a.runner.LatestAssistantReply(ctx, threadID)
	if err != nil {
		return nil, err
	}
	segment, response, followUp := ExtractSegments(raw)
	return &ThreadReply{Response: response, Question: followUp, Segment: segment}, nil
}

// Analyze runs the post-interview analyzer over the full transcript. Each
// attempt is bounded; only attempts that time out are retried.
func (a *Assistants) Analyze(ctx context.Context, threadID, transcript string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= analyzeAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, a.analyzeWindow)
		result, err := a.runAnalysis(attemptCtx, threadID, transcript)
		cancel()
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("analysis canceled: %w", ctx.Err())
		}
		if !errors.Is(err, ErrRunTimedOut) && !errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		lastErr = err
		a.logger.Warn("analysis attempt timed out", "thread_id", threadID, "attempt", attempt)
	}
	return "", fmt.Errorf("analysis failed after %d attempts: %w", analyzeAttempts, lastErr)
}

func (a *Assistants) runAnalysis(ctx context.Context, threadID, transcript string) (string, error) {
	if err := a.runner.AddUserMessage(ctx, threadID, transcript); err != nil {
		return "", err
	}
	runID, err := a.runner.StartRun(ctx, threadID, a.analyzerID, "")
	if err != nil {
		return "", err
	}
	state, err := pollRun(ctx, a.runner, threadID, runID, a.pollInterval, a.analyzeWindow)
	a.observeState(state)
	if err != nil {
		return "", err
	}

	replies, err := a.runner.AssistantReplies(ctx, threadID)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, reply := range replies {
		sb.WriteString(reply)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
