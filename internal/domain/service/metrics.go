package service

import (
	"context"

	"github.com/romkarus000/analytics-product/internal/domain/models"
)

// DetailParams selects the project, window and filters of a metric request.
type DetailParams struct {
	ProjectID int64
	From      string
	To        string
	Filters   string
}

// DriverParams extends DetailParams with the ranking options.
type DriverParams struct {
	DetailParams
	Metric    string
	Dimension string
	Sort      string
	Limit     int
}

// MetricsService exposes one entry point per metric family.
type MetricsService interface {
	GrossSales(ctx context.Context, p DetailParams) (*models.GrossSalesDetails, error)
	NetRevenue(ctx context.Context, p DetailParams) (*models.NetRevenueDetails, error)
	Refunds(ctx context.Context, p DetailParams) (*models.RefundsDetails, error)
	FeesTotal(ctx context.Context, p DetailParams) (*models.FeesDetails, error)
	BestWorstDays(ctx context.Context, p DetailParams) (*models.BestWorstDaysDetails, error)
	Drivers(ctx context.Context, p DriverParams) (*models.DriversDetails, error)
	Summary(ctx context.Context, p DetailParams) (*models.SummaryDetails, error)
	InvalidateProject(ctx context.Context, projectID int64) error
}
