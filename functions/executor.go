package functions

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	apperrors "github.com/entragate/funcgateway/internal/errors"
)

// ExecuteRequest is one invocation of a cataloged function.
type ExecuteRequest struct {
	FunctionName string         `json:"function_name"`
	Parameters   map[string]any `json:"parameters"`
	Filters      map[string]any `json:"filters"`
}

// Result is the simulated execution outcome.
type Result struct {
	Success    bool             `json:"success"`
	ExecutedAt time.Time        `json:"executed_at"`
	Rows       []map[string]any `json:"rows"`
}

// Executor simulates execution of cataloged functions. Real execution
// semantics live outside this system; what comes back is a fabricated result
// echoing the request. Unknown function names still succeed - that is
// intentional stub behavior, the catalog is consulted only for logging.
type Executor struct {
	repo    Repo
	logger  zerolog.Logger
	nowTime func() time.Time
}

// ExecutorOption defines a function type to modify the Executor instance.
type ExecutorOption func(*Executor)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ExecutorOption {
	return func(e *Executor) {
		e.nowTime = nowFunc
	}
}

// WithLogger replaces the default global logger.
func WithLogger(logger zerolog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an Executor over the given catalog.
func NewExecutor(repo Repo, opts ...ExecutorOption) *Executor {
	e := &Executor{
		repo:    repo,
		logger:  log.Logger,
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute produces the simulated result for a request.
func (e *Executor) Execute(_ context.Context, req *ExecuteRequest) *Result {
	logEvent := e.logger.Info().
		Str("function", req.FunctionName).
		Interface("parameters", req.Parameters).
		Interface("filters", req.Filters)

	if _, err := e.repo.Get(req.FunctionName); apperrors.Is(err, apperrors.ErrNotFound) {
		logEvent = logEvent.Bool("cataloged", false)
	}
	logEvent.Msg("executing function")

	return &Result{
		Success:    true,
		ExecutedAt: e.nowTime(),
		Rows: []map[string]any{
			{"message": "Simulated result for " + req.FunctionName},
			{"parameters": req.Parameters, "filters": req.Filters},
		},
	}
}
