package report

import (
	"github.com/getsentry/sentry-go"
)

// Options provides optional data for reporting.
type Options struct {
	Tags         map[string]string
	ExtraContext map[string]interface{}
	Level        sentry.Level
}

// ReportError reports err with the given severity (default error).
func ReportError(err error, levels ...sentry.Level) {
	if err == nil || !enabled {
		return
	}
	level := sentry.LevelError
	if len(levels) > 0 {
		level = levels[0]
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		sentry.CaptureException(err)
	})
}

// ReportErrorWithOptions reports err with tags and extra context.
func ReportErrorWithOptions(err error, opts Options) {
	if err == nil || !enabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		if opts.ExtraContext != nil {
			scope.SetContext("extra", opts.ExtraContext)
		}
		for k, v := range opts.Tags {
			scope.SetTag(k, v)
		}
		if opts.Level != "" {
			scope.SetLevel(opts.Level)
		}
		sentry.CaptureException(err)
	})
}
