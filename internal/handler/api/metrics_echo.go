package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "github.com/romkarus000/analytics-product/internal/domain/models"
	domsvc "github.com/romkarus000/analytics-product/internal/domain/service"
	svcmetrics "github.com/romkarus000/analytics-product/internal/service/metrics"
	"github.com/romkarus000/analytics-product/internal/service/ratelimit"
	"github.com/romkarus000/analytics-product/internal/services/analytics"
	"github.com/romkarus000/analytics-product/internal/usecase"
	xhttp "github.com/romkarus000/analytics-product/pkg/http"
	xlogger "github.com/romkarus000/analytics-product/pkg/logger"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// MetricsEchoHandler serves the metric detail endpoints of a project.
type MetricsEchoHandler struct {
	logger  *xlogger.Logger
	svc     domsvc.MetricsService
	limiter *ratelimit.Limiter
	health  HealthChecker
}

// NewMetricsEchoHandler creates the handler; a nil limiter disables rate limiting.
func NewMetricsEchoHandler(logger *xlogger.Logger, svc domsvc.MetricsService, limiter *ratelimit.Limiter, health HealthChecker) *MetricsEchoHandler {
	svcmetrics.Register()
	return &MetricsEchoHandler{logger: logger, svc: svc, limiter: limiter, health: health}
}

func (h *MetricsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	p := e.Group("/api/projects/:project_id", h.rateLimit)
	p.POST("/cache/invalidate", h.InvalidateCache)

	g := p.Group("/metrics")
	g.GET("/gross-sales", h.GrossSales)
	g.GET("/net-revenue", h.NetRevenue)
	g.GET("/refunds", h.Refunds)
	g.GET("/fees-total", h.FeesTotal)
	g.GET("/best-worst-days", h.BestWorstDays)
	g.GET("/drivers", h.Drivers)
	g.GET("/summary", h.Summary)
}

func (h *MetricsEchoHandler) GrossSales(c echo.Context) error {
	return detail(h, c, "gross_sales", h.svc.GrossSales)
}

func (h *MetricsEchoHandler) NetRevenue(c echo.Context) error {
	return detail(h, c, "net_revenue", h.svc.NetRevenue)
}

func (h *MetricsEchoHandler) Refunds(c echo.Context) error {
	return detail(h, c, "refunds", h.svc.Refunds)
}

func (h *MetricsEchoHandler) FeesTotal(c echo.Context) error {
	return detail(h, c, "fees_total", h.svc.FeesTotal)
}

func (h *MetricsEchoHandler) BestWorstDays(c echo.Context) error {
	return detail(h, c, "best_worst_days", h.svc.BestWorstDays)
}

func (h *MetricsEchoHandler) Summary(c echo.Context) error {
	return detail(h, c, "summary", h.svc.Summary)
}

func (h *MetricsEchoHandler) Drivers(c echo.Context) error {
	start := time.Now()
	req := &models.DriversRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		svcmetrics.ObserveEndpoint("drivers", start, "ERR_VALIDATION")
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.svc.Drivers(c.Request().Context(), domsvc.DriverParams{
		DetailParams: detailParams(&req.MetricDetailRequest),
		Metric:       req.Metric,
		Dimension:    req.Dimension,
		Sort:         req.Sort,
		Limit:        req.Limit,
	})
	return h.respond(c, "drivers", start, req.ProjectID, res, err)
}

func (h *MetricsEchoHandler) InvalidateCache(c echo.Context) error {
	start := time.Now()
	req := &models.InvalidateCacheRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.svc.InvalidateProject(c.Request().Context(), req.ProjectID); err != nil {
		return h.respond(c, "invalidate", start, req.ProjectID, nil, err)
	}
	svcmetrics.ObserveEndpoint("invalidate", start, "")
	return xhttp.AcceptedResponse(c, map[string]interface{}{"project_id": req.ProjectID})
}

func (h *MetricsEchoHandler) Health(c echo.Context) error {
	if h.health != nil {
		if err := h.health.Health(c.Request().Context()); err != nil {
			h.logger.Warn("health check failed", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("storage unavailable").WithError(err))
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *MetricsEchoHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()+"|"+c.Param("project_id")) {
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
		}
		return next(c)
	}
}

func detail[T any](h *MetricsEchoHandler, c echo.Context, endpoint string, fn func(context.Context, domsvc.DetailParams) (T, error)) error {
	start := time.Now()
	req := &models.MetricDetailRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		svcmetrics.ObserveEndpoint(endpoint, start, "ERR_VALIDATION")
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := fn(c.Request().Context(), detailParams(req))
	return h.respond(c, endpoint, start, req.ProjectID, res, err)
}

func detailParams(req *models.MetricDetailRequest) domsvc.DetailParams {
	return domsvc.DetailParams{ProjectID: req.ProjectID, From: req.From, To: req.To, Filters: req.Filters}
}

func (h *MetricsEchoHandler) respond(c echo.Context, endpoint string, start time.Time, projectID int64, res interface{}, err error) error {
	if err != nil {
		appErr := toAppError(err)
		svcmetrics.ObserveEndpoint(endpoint, start, appErr.Code)
		switch {
		case appErr.Status == http.StatusGatewayTimeout:
			h.logger.Warn("metrics request timed out",
				xlogger.String("endpoint", endpoint),
				xlogger.Int64("project_id", projectID),
				xlogger.Error(err))
		case appErr.Status >= http.StatusInternalServerError:
			h.logger.Error("metrics usecase error",
				xlogger.String("endpoint", endpoint),
				xlogger.Int64("project_id", projectID),
				xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	svcmetrics.ObserveEndpoint(endpoint, start, "")
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

// toAppError maps request errors to 400 and everything else to 500.
func toAppError(err error) *xhttp.AppError {
	var (
		rangeErr  *analytics.InvalidRangeError
		dateErr   *usecase.InvalidDateError
		dimErr    *analytics.UnknownDimensionError
		metricErr *analytics.UnknownMetricError
		sortErr   *analytics.UnknownSortError
		filterErr *analytics.InvalidFilterError
	)
	switch {
	case errors.As(err, &rangeErr):
		return xhttp.BadRequestError("ERR_INVALID_RANGE", "from", err.Error()).
			WithParam("from", rangeErr.From.Format(models.DateLayout)).
			WithParam("to", rangeErr.To.Format(models.DateLayout))
	case errors.As(err, &dateErr):
		return xhttp.BadRequestError("ERR_INVALID_RANGE", dateErr.Field, err.Error()).
			WithParam("value", dateErr.Value)
	case errors.As(err, &dimErr):
		return xhttp.BadRequestError("ERR_UNKNOWN_DIMENSION", "dimension", err.Error()).
			WithParam("value", dimErr.Dimension)
	case errors.As(err, &metricErr):
		return xhttp.BadRequestError("ERR_UNKNOWN_METRIC", "metric", err.Error())
	case errors.As(err, &sortErr):
		return xhttp.BadRequestError("ERR_UNKNOWN_SORT", "sort", err.Error())
	case errors.As(err, &filterErr):
		appErr := xhttp.BadRequestError("ERR_INVALID_FILTER", "filters", err.Error())
		if filterErr.Key != "" {
			appErr.WithParam("key", filterErr.Key)
		}
		return appErr
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.GatewayTimeoutError("metric computation timed out").WithError(err)
	default:
		return xhttp.InternalError("failed to compute metric").WithError(err)
	}
}
