package auditlog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hacknrollers/FHIR-fly/internal/platform/audit"
	"github.com/hacknrollers/FHIR-fly/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/audit-logs", h.ListAuditLogs)
	api.GET("/audit-logs/record/:table_name/:record_id", h.ListAuditLogsByRecord)
	api.GET("/audit-logs/:id", h.GetAuditLog)
}

func (h *Handler) ListAuditLogs(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		TableName: c.QueryParam("table_name"),
		Operation: audit.Operation(c.QueryParam("operation")),
		UserID:    c.QueryParam("user_id"),
	}
	if v := c.QueryParam("record_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid record_id")
		}
		f.RecordID = &id
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*audit.Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) GetAuditLog(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListAuditLogsByRecord(c echo.Context) error {
	recordID, err := uuid.Parse(c.Param("record_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid record_id")
	}
	items, err := h.svc.History(c.Request().Context(), c.Param("table_name"), recordID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*audit.Entry{}
	}
	return c.JSON(http.StatusOK, items)
}
