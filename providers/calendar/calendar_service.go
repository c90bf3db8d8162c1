package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"gitlab.com/teomiscia/openingbell/models"
)

// CalendarService asks the external region-calendar API whether a
// market is open. Transient failures are retried by the client; the
// coordinator treats a final error as "skip this cycle".
type CalendarService struct {
	client *resty.Client
}

func NewCalendarService(baseURL string, apiKey string, timeout time.Duration) *CalendarService {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	if apiKey != "" {
		client.SetHeader("X-Api-Key", apiKey)
	}
	return &CalendarService{client: client}
}

type statusResponse struct {
	RegionID string `json:"region_id"`
	Status   string `json:"status"`
}

func (calendarService *CalendarService) Status(ctx context.Context, regionID string) (models.RegionStatus, error) {
	var payload statusResponse
	resp, err := calendarService.client.R().
		SetContext(ctx).
		SetPathParam("region", regionID).
		SetResult(&payload).
		Get("/regions/{region}/status")
	if err != nil {
		return "", fmt.Errorf("calendar request for %s: %w", regionID, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("calendar request for %s: status %d", regionID, resp.StatusCode())
	}

	switch models.RegionStatus(payload.Status) {
	case models.RegionStatusOpen:
		return models.RegionStatusOpen, nil
	case models.RegionStatusClosed:
		return models.RegionStatusClosed, nil
	}
	return "", fmt.Errorf("calendar returned unknown status %q for %s", payload.Status, regionID)
}
