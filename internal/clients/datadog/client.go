package datadog

import (
	"context"
	"net/http"
	"strings"
	"time"

	datadogapi "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"softpos/internal/config"
	"softpos/internal/errors"
	"softpos/internal/logging"
)

const submitLogOperation = "v2.LogsApi.SubmitLog"

type DatadogClient struct {
	config  config.DatadogConfig
	logsAPI *datadogV2.LogsApi
	logger  *logging.Logger
}

func NewDatadogClient(cfg config.DatadogConfig, logger *logging.Logger) *DatadogClient {
	if logger == nil {
		logger = logging.NewDefaultLogger("datadog")
	}

	apiCfg := datadogapi.NewConfiguration()
	apiCfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	if baseURL := strings.TrimRight(cfg.BaseURL, "/"); baseURL != "" {
		apiCfg.OperationServers = map[string]datadogapi.ServerConfigurations{
			submitLogOperation: {{URL: baseURL}},
		}
	}

	return &DatadogClient{
		config:  cfg,
		logsAPI: datadogV2.NewLogsApi(datadogapi.NewAPIClient(apiCfg)),
		logger:  logger,
	}
}

// authContext layers credentials and the intake site onto ctx
func (c *DatadogClient) authContext(ctx context.Context) context.Context {
	authCtx := datadogapi.NewDefaultContext(ctx)
	authCtx = context.WithValue(authCtx, datadogapi.ContextAPIKeys, map[string]datadogapi.APIKey{
		"apiKeyAuth": {Key: c.config.APIKey},
	})
	if c.config.Site != "" {
		authCtx = context.WithValue(authCtx, datadogapi.ContextServerVariables, map[string]string{
			"site": c.config.Site,
		})
	}
	return authCtx
}

func (c *DatadogClient) SubmitLogs(ctx context.Context, body []datadogV2.HTTPLogItem, opts *datadogV2.SubmitLogOptionalParameters) (any, *http.Response, error) {
	if len(body) == 0 {
		return nil, nil, nil
	}

	var (
		resp     any
		httpResp *http.Response
		err      error
	)
	authCtx := c.authContext(ctx)
	if opts != nil {
		resp, httpResp, err = c.logsAPI.SubmitLog(authCtx, body, *opts)
	} else {
		resp, httpResp, err = c.logsAPI.SubmitLog(authCtx, body)
	}
	if httpResp != nil && httpResp.Body != nil {
		defer func() { _ = httpResp.Body.Close() }()
	}
	if err != nil {
		c.logger.Debug("submit of %d log(s) failed: %v", len(body), err)
		return resp, httpResp, errors.External("datadog", err)
	}
	return resp, httpResp, nil
}
