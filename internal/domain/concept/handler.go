package concept

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
	"github.com/hacknrollers/FHIR-fly/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/concepts", h.CreateConcept)
	api.GET("/concepts", h.ListConcepts)
	api.GET("/concepts/by-code/:codesystem_id/:code", h.GetConceptByCode)
	api.GET("/concepts/codesystem/:codesystem_id", h.ListConceptsByCodeSystem)
	api.GET("/concepts/:id", h.GetConcept)
	api.PUT("/concepts/:id", h.UpdateConcept)
	api.DELETE("/concepts/:id", h.DeleteConcept)
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func (h *Handler) CreateConcept(c echo.Context) error {
	var concept Concept
	if err := c.Bind(&concept); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	concept.ID = uuid.Nil
	if err := h.svc.Create(c.Request().Context(), &concept); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, concept)
}

func (h *Handler) GetConcept(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	concept, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, concept)
}

func (h *Handler) GetConceptByCode(c echo.Context) error {
	csID, err := uuidParam(c, "codesystem_id")
	if err != nil {
		return err
	}
	code, err := apperr.PathParam(c, "code")
	if err != nil {
		return err
	}
	concept, err := h.svc.GetByCode(c.Request().Context(), csID, code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, concept)
}

func (h *Handler) ListConcepts(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{Search: c.QueryParam("search")}
	if v := c.QueryParam("codesystem_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid codesystem_id")
		}
		f.CodeSystemID = &id
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Concept{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListConceptsByCodeSystem(c echo.Context) error {
	csID, err := uuidParam(c, "codesystem_id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListByCodeSystem(c.Request().Context(), csID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Concept{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateConcept(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var p Patch
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	concept, err := h.svc.Update(c.Request().Context(), id, &p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, concept)
}

func (h *Handler) DeleteConcept(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	concept, err := h.svc.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, concept)
}
