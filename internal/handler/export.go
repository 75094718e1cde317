package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shift-checklist-bot/internal/repository"
)

// ExportHandler serves the CSV report export over HTTP. Access is
// guarded by the export-token middleware on the route.
type ExportHandler struct {
	Reports *repository.ReportRepo
}

func NewExportHandler(reports *repository.ReportRepo) *ExportHandler {
	return &ExportHandler{Reports: reports}
}

// ExportCSV streams every stored report as a CSV attachment.
func (h *ExportHandler) ExportCSV(c echo.Context) error {
	data, err := h.Reports.ExportCSV()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "export failed"})
	}
	filename := fmt.Sprintf("reports-%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "text/csv", data)
}
