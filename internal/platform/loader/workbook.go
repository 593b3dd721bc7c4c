// Package loader imports concepts from spreadsheet releases into a code
// system. The first sheet is read; row one is the header.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/hacknrollers/FHIR-fly/internal/domain/codesystem"
	"github.com/hacknrollers/FHIR-fly/internal/domain/concept"
	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
)

// CodeSystems looks up the target code system of an import.
type CodeSystems interface {
	Get(ctx context.Context, id uuid.UUID) (*codesystem.CodeSystem, error)
	Resolve(ctx context.Context, ident string) (*codesystem.CodeSystem, error)
}

// Concepts creates one concept. concept.Service satisfies it, so every
// imported row is validated and audited like an API insert.
type Concepts interface {
	Create(ctx context.Context, c *concept.Concept) error
}

// Header names recognised as concept fields. Anything else lands in raw.
var headerAliases = map[string]string{
	"code":        "code",
	"concept":     "code",
	"display":     "display",
	"term":        "display",
	"name":        "display",
	"definition":  "definition",
	"description": "definition",
}

// RowError describes a row that was rejected.
type RowError struct {
	Row     int    `json:"row"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Result summarises an import.
type Result struct {
	CodeSystemID uuid.UUID  `json:"codesystem_id"`
	Total        int        `json:"total"`
	Imported     int        `json:"imported"`
	Skipped      int        `json:"skipped"`
	Errors       []RowError `json:"errors"`
}

type Importer struct {
	codesystems CodeSystems
	concepts    Concepts
	logger      zerolog.Logger
}

func NewImporter(cs CodeSystems, concepts Concepts, logger zerolog.Logger) *Importer {
	return &Importer{codesystems: cs, concepts: concepts, logger: logger}
}

// ImportFile opens path and imports it. See Import.
func (im *Importer) ImportFile(ctx context.Context, path, codeSystem string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f, codeSystem)
}

// Import reads the workbook and creates one concept per data row in the
// code system identified by id, url or name. Rows without a code are
// skipped. Rows rejected by validation are reported in Result.Errors and
// the import carries on; any other failure stops it.
func (im *Importer) Import(ctx context.Context, r io.Reader, codeSystem string) (*Result, error) {
	cs, err := im.resolve(ctx, codeSystem)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, apperr.Validation("file", "workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	res := &Result{CodeSystemID: cs.ID, Errors: []RowError{}}
	if len(rows) < 2 {
		return res, nil
	}
	header := normalizeHeader(rows[0])
	if !contains(header, "code") {
		return nil, apperr.Validation("file", "header row has no code column")
	}

	for i, row := range rows[1:] {
		rowNum := i + 2
		c, err := rowToConcept(cs.ID, rows[0], header, row)
		if err != nil {
			return res, fmt.Errorf("row %d: %w", rowNum, err)
		}
		if c == nil {
			continue
		}
		res.Total++
		if c.Code == "" {
			res.Skipped++
			continue
		}
		if err := im.concepts.Create(ctx, c); err != nil {
			if apperr.IsValidation(err) {
				res.Errors = append(res.Errors, RowError{Row: rowNum, Code: c.Code, Message: err.Error()})
				continue
			}
			return res, fmt.Errorf("row %d: %w", rowNum, err)
		}
		res.Imported++
	}

	im.logger.Info().
		Str("codesystem_id", cs.ID.String()).
		Int("total", res.Total).
		Int("imported", res.Imported).
		Int("skipped", res.Skipped).
		Int("rejected", len(res.Errors)).
		Msg("concept import finished")
	return res, nil
}

func (im *Importer) resolve(ctx context.Context, ident string) (*codesystem.CodeSystem, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return nil, apperr.Validation("codesystem", "is required")
	}
	if id, err := uuid.Parse(ident); err == nil {
		return im.codesystems.Get(ctx, id)
	}
	return im.codesystems.Resolve(ctx, ident)
}

func normalizeHeader(cells []string) []string {
	out := make([]string, len(cells))
	for i, h := range cells {
		if field, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]; ok && !contains(out[:i], field) {
			out[i] = field
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// rowToConcept returns nil for a row with no values at all.
func rowToConcept(csID uuid.UUID, rawHeader, header, row []string) (*concept.Concept, error) {
	c := &concept.Concept{CodeSystemID: csID}
	extra := map[string]string{}
	empty := true
	for i, cell := range row {
		v := strings.TrimSpace(cell)
		if v == "" || i >= len(header) {
			continue
		}
		empty = false
		switch header[i] {
		case "code":
			c.Code = v
		case "display":
			c.Display = &v
		case "definition":
			c.Definition = &v
		default:
			if key := strings.TrimSpace(rawHeader[i]); key != "" {
				extra[key] = v
			}
		}
	}
	if empty {
		return nil, nil
	}
	if len(extra) > 0 {
		raw, err := json.Marshal(extra)
		if err != nil {
			return nil, err
		}
		c.Raw = raw
	}
	return c, nil
}
