package report

import (
	"log"
	"os"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
)

var enabled bool

// SetupSentry initializes the client. An empty DSN leaves reporting disabled.
func SetupSentry(dsn, env string) {
	if dsn == "" {
		return
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      env,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	}); err != nil {
		log.Printf("sentry.Init: %s", err)
		return
	}
	enabled = true
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("go_version", runtime.Version())
		scope.SetContext("host_info", map[string]interface{}{
			"hostname": hostname(),
		})
	})
}

func FlushSentry() {
	if enabled {
		sentry.Flush(2 * time.Second)
	}
}

// Enabled reports whether SetupSentry succeeded.
func Enabled() bool {
	return enabled
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
