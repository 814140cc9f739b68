package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
)

// handleExport handles GET /api/v1/layups/{id}/export, returning the ply
// schedule of a completed job as an XLSX worksheet.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "missing job ID"})
		return
	}

	best, err := s.completedBest(id)
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": err.Error()})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	headers := []interface{}{"Ply", "Angle (deg)"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			s.exportError(w, id, err)
			return
		}
	}

	// Plies are numbered bottom to top.
	for i, angle := range best.Sequence {
		plyCell, _ := excelize.CoordinatesToCellName(1, i+2)
		angleCell, _ := excelize.CoordinatesToCellName(2, i+2)
		if err := f.SetCellValue(sheet, plyCell, i+1); err != nil {
			s.exportError(w, id, err)
			return
		}
		if err := f.SetCellValue(sheet, angleCell, angle); err != nil {
			s.exportError(w, id, err)
			return
		}
	}

	summaryRow := len(best.Sequence) + 3
	for i, pair := range [][2]interface{}{
		{"Ply count", best.PlyCount()},
		{"Objective", best.Objective},
	} {
		labelCell, _ := excelize.CoordinatesToCellName(1, summaryRow+i)
		valueCell, _ := excelize.CoordinatesToCellName(2, summaryRow+i)
		if err := f.SetCellValue(sheet, labelCell, pair[0]); err != nil {
			s.exportError(w, id, err)
			return
		}
		if err := f.SetCellValue(sheet, valueCell, pair[1]); err != nil {
			s.exportError(w, id, err)
			return
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "layup-"+id+".xlsx"))
	if err := f.Write(w); err != nil {
		s.logger.Error("Failed to write export", map[string]interface{}{
			"job_id": id,
			"error":  err.Error(),
		})
	}
}

func (s *Server) exportError(w http.ResponseWriter, id string, err error) {
	s.logger.Error("Failed to build export", map[string]interface{}{
		"job_id": id,
		"error":  err.Error(),
	})
	s.writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "failed to build export"})
}
