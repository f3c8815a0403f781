// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

var (
	reporterMu sync.RWMutex
	reporter   TelemetryReporter
)

// SetTelemetryReporter installs the reporter used by Build. Passing nil
// disables reporting.
func SetTelemetryReporter(r TelemetryReporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	reporter = r
	hasActiveReporting.Store(r != nil && r.IsEnabled())
}

func reportToTelemetry(ee *EnhancedError) {
	reporterMu.RLock()
	r := reporter
	reporterMu.RUnlock()
	if r == nil || !r.IsEnabled() {
		return
	}
	r.ReportError(ee)
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// InitSentry initialises the Sentry SDK and installs a reporter. An empty DSN
// leaves telemetry disabled.
func InitSentry(dsn, release string) error {
	if dsn == "" {
		SetTelemetryReporter(nil)
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		AttachStacktrace: false,
	}); err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	SetTelemetryReporter(NewSentryReporter(true))
	return nil
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry. Validation and conflict
// errors are user mistakes and are not sent.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}
	switch ee.Category {
	case CategoryValidation, CategoryConflict, CategoryNotFound:
		return
	}

	message := ScrubMessage(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))
		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = ScrubMessage(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}
		scope.SetLevel(sentry.LevelError)
		scope.SetFingerprint([]string{ee.GetComponent(), string(ee.Category)})
		sentry.CaptureMessage(message)
	})

	ee.MarkReported()
}

var scrubPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(key=)[^&\s]+`),
	regexp.MustCompile(`(?i)((api[_-]?key|token|secret)["':=\s]+)[A-Za-z0-9._\-]{6,}`),
	regexp.MustCompile(`AIza[0-9A-Za-z_\-]{20,}`),
}

// ScrubMessage removes API keys and tokens from a message before it leaves the process.
func ScrubMessage(msg string) string {
	for i, p := range scrubPatterns {
		if i == len(scrubPatterns)-1 {
			msg = p.ReplaceAllString(msg, "[REDACTED]")
			continue
		}
		msg = p.ReplaceAllString(msg, "${1}[REDACTED]")
	}
	return msg
}
