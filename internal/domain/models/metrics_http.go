package models

// Requests for metric HTTP endpoints. Defined in domain for consistency and reuse.

type MetricDetailRequest struct {
	ProjectID int64  `param:"project_id" validate:"required,gt=0"`
	From      string `query:"from" json:"from" validate:"required,datetime=2006-01-02"`
	To        string `query:"to" json:"to" validate:"required,datetime=2006-01-02"`
	Filters   string `query:"filters" json:"filters" validate:"omitempty,json"`
}

type DriversRequest struct {
	MetricDetailRequest
	Metric    string `query:"metric" json:"metric" default:"net_revenue" validate:"oneof=gross_sales refunds net_revenue fees_total orders"`
	Dimension string `query:"dimension" json:"dimension" validate:"required"`
	Sort      string `query:"sort" json:"sort" default:"delta_desc" validate:"oneof=delta_desc delta_asc current_desc"`
	Limit     int    `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=100"`
}

type InvalidateCacheRequest struct {
	ProjectID int64 `param:"project_id" validate:"required,gt=0"`
}
