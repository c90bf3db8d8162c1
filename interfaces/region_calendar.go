package interfaces

import (
	"context"

	"gitlab.com/teomiscia/openingbell/models"
)

// RegionCalendar answers whether a market region is currently open.
type RegionCalendar interface {
	Status(ctx context.Context, regionID string) (models.RegionStatus, error)
}
