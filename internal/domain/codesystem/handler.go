package codesystem

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
	"github.com/hacknrollers/FHIR-fly/internal/platform/fhir"
	"github.com/hacknrollers/FHIR-fly/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	api.POST("/codesystems", h.CreateCodeSystem)
	api.GET("/codesystems", h.ListCodeSystems)
	api.GET("/codesystems/by-url/*", h.GetCodeSystemByURL)
	api.GET("/codesystems/by-name/:name", h.GetCodeSystemByName)
	api.GET("/codesystems/:id", h.GetCodeSystem)
	api.PUT("/codesystems/:id", h.UpdateCodeSystem)
	api.DELETE("/codesystems/:id", h.DeleteCodeSystem)

	fhirGroup.GET("/CodeSystem", h.SearchCodeSystemsFHIR)
	fhirGroup.GET("/CodeSystem/:id", h.GetCodeSystemFHIR)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- REST Endpoints --

func (h *Handler) CreateCodeSystem(c echo.Context) error {
	var cs CodeSystem
	if err := c.Bind(&cs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cs.ID = uuid.Nil
	if err := h.svc.Create(c.Request().Context(), &cs); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cs)
}

func (h *Handler) GetCodeSystem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	cs, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) GetCodeSystemByURL(c echo.Context) error {
	raw, err := apperr.PathParam(c, "*")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid url")
	}
	cs, err := h.svc.GetByURL(c.Request().Context(), raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) GetCodeSystemByName(c echo.Context) error {
	name, err := apperr.PathParam(c, "name")
	if err != nil {
		return err
	}
	cs, err := h.svc.GetByName(c.Request().Context(), name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) ListCodeSystems(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), Filter{Search: c.QueryParam("search")}, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*CodeSystem{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateCodeSystem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var p Patch
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cs, err := h.svc.Update(c.Request().Context(), id, &p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) DeleteCodeSystem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	cs, err := h.svc.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cs)
}

// -- FHIR Endpoints --

func (h *Handler) SearchCodeSystemsFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)
	search := c.QueryParam("name")
	if search == "" {
		search = c.QueryParam("url")
	}
	items, total, err := h.svc.List(c.Request().Context(), Filter{Search: search}, pg.Limit, pg.Offset)
	if err != nil {
		status, msg := apperr.StatusOf(err)
		return c.JSON(status, fhir.ErrorOutcome(msg))
	}
	resources := make([]fhir.Resource, len(items))
	for i, cs := range items {
		resources[i] = cs.ToFHIR()
	}
	var links []fhir.BundleLink
	for _, l := range pg.FHIRLinks("/fhir/CodeSystem", total) {
		links = append(links, fhir.BundleLink{Relation: l.Relation, URL: l.URL})
	}
	return c.JSON(http.StatusOK, fhir.NewSearchBundle(resources, total, links))
}

func (h *Handler) GetCodeSystemFHIR(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("CodeSystem", c.Param("id")))
	}
	cs, err := h.svc.Get(c.Request().Context(), id)
	if apperr.IsNotFound(err) {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("CodeSystem", c.Param("id")))
	}
	if err != nil {
		status, msg := apperr.StatusOf(err)
		return c.JSON(status, fhir.ErrorOutcome(msg))
	}
	return c.JSON(http.StatusOK, cs.ToFHIR())
}
