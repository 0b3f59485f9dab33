package api

import (
	"errors"
	"strings"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
	xhttp "SignalDeck/pkg/http"
	xlogger "SignalDeck/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardHandler serves the latest dashboard view produced by the scheduler.
type DashboardHandler struct {
	logger *xlogger.Logger
	store  domrepo.ViewStore
}

func NewDashboardHandler(logger *xlogger.Logger, store domrepo.ViewStore) *DashboardHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &DashboardHandler{logger: logger, store: store}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/quotes", h.Quotes)
	g.GET("/view", h.View)
	g.GET("/heatmap", h.Heatmap)
	g.GET("/signals", h.Signals)
}

func (h *DashboardHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Quotes returns the quote board of the latest view.
func (h *DashboardHandler) Quotes(c echo.Context) error {
	v, err := h.latest(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, v.Quotes)
}

// View returns the latest view without the record list.
func (h *DashboardHandler) View(c echo.Context) error {
	v, err := h.latest(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, v.WithoutRecords())
}

func (h *DashboardHandler) Heatmap(c echo.Context) error {
	req := &models.HeatmapRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	v, err := h.latest(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	hm := models.NewHeatmap()
	if v.Log.Aggregate != nil {
		hm = v.Log.Aggregate.Heatmap
	}
	return xhttp.SuccessResponse(c, models.HeatmapResponse{
		Days:  hm.Days,
		Cells: hm.Cells(req.Dense),
		Total: hm.Total(),
	})
}

// Signals lists signal records newest first, optionally filtered by pair.
func (h *DashboardHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	v, err := h.latest(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	rows := make([]models.SignalRecord, 0, req.Limit)
	var total int64
	for _, rec := range v.Log.Records {
		if req.Pair != "" && !strings.EqualFold(rec.Pair, req.Pair) {
			continue
		}
		total++
		if len(rows) < req.Limit {
			rows = append(rows, rec)
		}
	}
	return xhttp.ListResponse(c, rows, total)
}

func (h *DashboardHandler) latest(c echo.Context) (*models.DashboardView, error) {
	v, err := h.store.Latest(c.Request().Context())
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, domrepo.ErrNoView):
		return nil, xhttp.ServiceUnavailableError("dashboard view not ready yet").WithError(err)
	default:
		h.logger.Error("load latest view", xlogger.Error(err))
		return nil, xhttp.InternalError("failed to load dashboard view").WithError(err)
	}
}
