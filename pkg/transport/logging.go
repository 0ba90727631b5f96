package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/tooldrive/pkg/api"
)

// Logging returns middleware that emits structured log entries for each
// run request. The entry carries the request and run IDs (from context),
// model, mode, duration and the outcome.
//
// HTTP method, path and status are not visible at the RunCreator level;
// the HTTP adapter's metrics middleware covers those.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next RunCreator) RunCreator {
		return RunCreatorFunc(func(ctx context.Context, req *api.RunRequest, w ResponseWriter) error {
			start := time.Now()
			requestID := RequestIDFromContext(ctx)

			err := next.CreateRun(ctx, req, w)

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.String("run_id", RunIDFromContext(ctx)),
				slog.String("model", req.Model),
				slog.Bool("stream", req.Stream),
				slog.Int("allowed_tools", len(req.AllowedTools)),
				slog.Duration("duration", time.Since(start)),
			}

			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "run failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelInfo, "run finished", attrs...)
			}

			return err
		})
	}
}
