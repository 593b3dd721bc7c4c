package terminology

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
	"github.com/hacknrollers/FHIR-fly/internal/platform/fhir"
)

type Handler struct {
	translator *Translator
}

func NewHandler(t *Translator) *Handler {
	return &Handler{translator: t}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	api.POST("/conceptmaps/translate", h.Translate)

	fhirGroup.GET("/ConceptMap/$translate", h.TranslateFHIR)
	fhirGroup.POST("/ConceptMap/$translate", h.TranslateFHIR)
}

func (h *Handler) Translate(c echo.Context) error {
	var req TranslationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	resp, err := h.translator.Translate(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// TranslateFHIR serves ConceptMap/$translate. Inputs are system (source code
// system url or name), targetsystem and code (source concept id), taken from
// the query string on GET and from a Parameters body on POST.
func (h *Handler) TranslateFHIR(c echo.Context) error {
	req := TranslationRequest{
		SourceCodeSystem: c.QueryParam("system"),
		TargetCodeSystem: c.QueryParam("targetsystem"),
		SourceCode:       c.QueryParam("code"),
	}
	if c.Request().Method == http.MethodPost {
		var params fhir.Parameters
		if err := c.Bind(&params); err != nil {
			return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid Parameters resource"))
		}
		req = TranslationRequest{
			SourceCodeSystem: params.Value("system"),
			TargetCodeSystem: params.Value("targetsystem"),
			SourceCode:       params.Value("code"),
		}
	}
	if req.SourceCodeSystem == "" {
		return c.JSON(http.StatusBadRequest, fhir.RequiredOutcome("system"))
	}
	if req.TargetCodeSystem == "" {
		return c.JSON(http.StatusBadRequest, fhir.RequiredOutcome("targetsystem"))
	}
	if req.SourceCode == "" {
		return c.JSON(http.StatusBadRequest, fhir.RequiredOutcome("code"))
	}

	resp, err := h.translator.Translate(c.Request().Context(), req)
	if err != nil {
		status, msg := apperr.StatusOf(err)
		outcome := fhir.ErrorOutcome(msg)
		if status == http.StatusNotFound {
			outcome = fhir.NewOperationOutcome("error", "not-found", msg)
		}
		return c.JSON(status, outcome)
	}
	return c.JSON(http.StatusOK, translationParameters(req, resp))
}

func translationParameters(req TranslationRequest, resp *TranslationResponse) *fhir.Parameters {
	if !resp.Found {
		return fhir.NewParameters(
			fhir.BoolParam("result", false),
			fhir.StringParam("message", "no mapping found for code "+req.SourceCode),
		)
	}
	match := fhir.Parameter{Name: "match"}
	if resp.Equivalence != nil {
		match.Part = append(match.Part, fhir.Parameter{Name: "equivalence", ValueCode: *resp.Equivalence})
	}
	match.Part = append(match.Part, fhir.Parameter{
		Name:        "concept",
		ValueCoding: &fhir.Coding{System: req.TargetCodeSystem, Code: resp.TargetCode.String()},
	})
	return fhir.NewParameters(fhir.BoolParam("result", true), match)
}
