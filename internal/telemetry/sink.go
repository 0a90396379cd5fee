// Package telemetry ships checkout outcomes to Datadog logs.
package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"softpos/internal/buildinfo"
	"softpos/internal/checkout"
	"softpos/internal/clients/datadog"
	"softpos/internal/config"
	"softpos/internal/errors"
	"softpos/internal/logging"
)

// Sink publishes one log item per checkout outcome
type Sink struct {
	client      datadog.DatadogInterface
	cfg         config.DatadogConfig
	environment string
	logger      *logging.Logger
}

// NewSink returns a publisher for cfg. A disabled config yields a no-op publisher.
func NewSink(cfg *config.Config, client datadog.DatadogInterface, logger *logging.Logger) checkout.Publisher {
	if !cfg.Datadog.Enabled || client == nil {
		return Noop{}
	}
	if logger == nil {
		logger = logging.NewDefaultLogger("telemetry")
	}
	return &Sink{
		client:      client,
		cfg:         cfg.Datadog,
		environment: cfg.Environment,
		logger:      logger,
	}
}

// Publish submits the outcome
func (s *Sink) Publish(ctx context.Context, outcome checkout.Outcome) error {
	item := s.logItem(outcome)
	if _, _, err := s.client.SubmitLogs(ctx, []datadogV2.HTTPLogItem{item}, nil); err != nil {
		return errors.Wrap(err, errors.ErrorTypeExternal, "failed to ship checkout outcome")
	}
	s.logger.Debug("shipped checkout outcome %s", outcome.Status)
	return nil
}

func (s *Sink) logItem(outcome checkout.Outcome) datadogV2.HTTPLogItem {
	item := datadogV2.NewHTTPLogItem(outcome.Message)
	item.SetService(s.cfg.Service)
	item.SetDdsource(s.cfg.Source)
	item.SetDdtags(strings.Join(s.tags(outcome), ","))

	attrs := map[string]interface{}{
		"status":      string(outcome.Status),
		"duration_ms": strconv.FormatInt(outcome.Duration.Milliseconds(), 10),
		"level":       "info",
	}
	if outcome.Err != nil {
		attrs["level"] = "error"
		attrs["error.kind"] = string(errors.TypeOf(outcome.Err))
		attrs["error.message"] = outcome.Err.Error()
	}
	if outcome.Request != nil {
		attrs["payment.amount"] = outcome.Request.Amount.StringFixed(2)
		attrs["payment.currency"] = outcome.Request.CurrencyCode
		attrs["payment.reference_id"] = outcome.Request.ReferenceID
	}
	if outcome.Result != nil {
		attrs["transaction.id"] = outcome.Result.TransactionID
		attrs["transaction.response_code"] = outcome.Result.ResponseCode
		attrs["transaction.response_message"] = outcome.Result.ResponseMessage
	}
	if outcome.Device != nil {
		attrs["device.id"] = outcome.Device.ID
		attrs["device.name"] = outcome.Device.Name
	}
	item.AdditionalProperties = attrs
	return *item
}

func (s *Sink) tags(outcome checkout.Outcome) []string {
	tags := []string{
		"env:" + s.environment,
		"version:" + buildinfo.Version,
		fmt.Sprintf("outcome:%s", outcome.Status),
	}
	return append(tags, s.cfg.Tags...)
}

// Noop discards outcomes
type Noop struct{}

// Publish does nothing
func (Noop) Publish(context.Context, checkout.Outcome) error { return nil }
