package httpclient

import (
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/creativeflow/creative-int/internal/config"
	"github.com/creativeflow/creative-int/internal/logging"
)

// NewRetryable wraps a proxy-aware client with transport-level retries:
// exponential backoff on connection failures and 5xx responses. Application
// level retries (batch resubmission) are handled elsewhere and are not this
// client's concern.
func NewRetryable(cfg *config.Config, log *logging.Logger) (*retryablehttp.Client, error) {
	base, err := New(cfg, log)
	if err != nil {
		return nil, err
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = base
	client.HTTPClient.Timeout = cfg.RequestTimeout
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 10 * time.Second
	client.Logger = retryLogger{log}
	return client, nil
}

// retryLogger adapts the structured logger to retryablehttp's LeveledLogger.
type retryLogger struct {
	log *logging.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}
