package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/rainbowtourguides/backend/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{"slot_id", "date", "start_time", "end_time", "duration_hours", "status"}

// ExportRow is the JSON shape of one exported slot.
type ExportRow struct {
	SlotID        uuid.UUID          `json:"slotId"`
	Date          openapi_types.Date `json:"date"`
	StartTime     string             `json:"startTime"`
	EndTime       string             `json:"endTime"`
	DurationHours int                `json:"durationHours"`
	Status        string             `json:"status"`
}

// ExportAvailability handles GET /api/guides/{id}/availability/export?from&to[&format].
// from and to are inclusive calendar dates in the guide's timezone; ?format=csv
// returns CSV, default is JSON.
func (s *Server) ExportAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var (
		from, to openapi_types.Date
		format   *string
	)
	if !queryValue(w, r, "from", &from) ||
		!queryValue(w, r, "to", &to) ||
		!bindQuery(w, r, "format", false, &format) {
		return
	}
	wantCSV := format != nil && *format == "csv"
	if format != nil && !wantCSV && *format != "json" {
		requestError(w, "format must be csv or json")
		return
	}

	rows, err := s.exports.Export(r.Context(), id, from.Time, to.Time)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	if wantCSV {
		writeCSV(w, rows)
		return
	}
	out := make([]ExportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, domainRowToResponse(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// writeCSV encodes rows with a header line.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, row := range rows {
		//nolint:errcheck
		cw.Write([]string{
			row.SlotID,
			row.Date,
			row.StartTime,
			row.EndTime,
			strconv.Itoa(row.DurationHours),
			row.Status,
		})
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="availability.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// domainRowToResponse maps a domain.ExportRow to its JSON shape. Rows come
// from the service, so a malformed id or date is left at its zero value.
func domainRowToResponse(r domain.ExportRow) ExportRow {
	id, _ := uuid.Parse(r.SlotID)
	date, _ := time.Parse(time.DateOnly, r.Date)
	return ExportRow{
		SlotID:        id,
		Date:          openapi_types.Date{Time: date},
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		DurationHours: r.DurationHours,
		Status:        r.Status,
	}
}
