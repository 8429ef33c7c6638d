package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// CPI call types
const (
	CPICallTypeFirstOut     = 1
	CPICallTypeUnclassified = 8
)

// CPIRecord one call log row from the call-tracking provider.
type CPIRecord struct {
	RecordID    int64   `json:"record_id"`
	Username    string  `json:"username"`
	Company     *string `json:"company"`
	PhoneNumber *string `json:"phone_number"`
	CreatedAt   string  `json:"created_at"` // provider-local time, no offset
	IsOut       int     `json:"is_out"`
	IsContract  int     `json:"is_contract"`
	Type        int     `json:"type"`
}

// CPIRecordPage one page of results plus the total row count across pages.
type CPIRecordPage struct {
	Data  []CPIRecord
	Total int
}

type cpiRecordResponse struct {
	Results struct {
		TotalCount int         `json:"total_count"`
		Data       []CPIRecord `json:"data"`
	} `json:"results"`
}

// CPIFetchParams StartDate/EndDate are YYYY-MM-DD.
type CPIFetchParams struct {
	StartDate string
	EndDate   string
	Page      int
	Rows      int
}

// CPIClient call-tracking provider API client
type CPIClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewCPIClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *CPIClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
	})

	return &CPIClient{httpClient: client, logger: logger}
}

// FetchOutboundCalls outbound first calls (is_out=1, call_type=1), newest first.
func (c *CPIClient) FetchOutboundCalls(ctx context.Context, params CPIFetchParams) (*CPIRecordPage, error) {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Rows <= 0 {
		params.Rows = 100
	}

	var body cpiRecordResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"row":        strconv.Itoa(params.Rows),
			"page":       strconv.Itoa(params.Page),
			"start_date": params.StartDate,
			"end_date":   params.EndDate,
			"is_out":     "1",
			"call_type":  "1",
			"sort":       "date-desc",
		}).
		SetResult(&body).
		Get("/api/record")
	if err != nil {
		c.logger.Error("CPI API call failed", zap.Int("page", params.Page), zap.Error(err))
		return nil, fmt.Errorf("failed to call CPI API: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("CPI API returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", truncateForLog(resp.String(), 500)),
		)
		return nil, fmt.Errorf("CPI fetch failed: status %d", resp.StatusCode())
	}

	return &CPIRecordPage{Data: body.Results.Data, Total: body.Results.TotalCount}, nil
}

func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
