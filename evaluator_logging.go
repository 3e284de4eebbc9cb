package restcache

import (
	"time"

	"github.com/goliatone/go-restcache/pkg/logging"
)

// EvaluatorLogEvent describes an evaluation attempt for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Type     string
	Records  int
	Matched  int
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

// evaluatorLog writes evaluation events to the client logger at debug level,
// or warn when evaluation failed.
type evaluatorLog struct {
	logger logging.Logger
}

func (l evaluatorLog) LogEvaluation(event EvaluatorLogEvent) {
	args := []any{
		"engine", event.Engine,
		"expr", event.Expr,
		"type", event.Type,
		"records", event.Records,
		"matched", event.Matched,
		"duration", event.Duration,
	}
	if event.Err != nil {
		l.logger.Warn("evaluation failed", append(args, "error", event.Err)...)
		return
	}
	l.logger.Debug("evaluation", args...)
}
