package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lessonbook/internal/domain"
	"lessonbook/internal/models"
	"lessonbook/internal/timetable"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// ScheduleExporter renders the booked schedule as an xlsx grid: one column
// per day, one row per bell period, booked lessons in the cells.
type ScheduleExporter struct {
	repo     domain.Repository
	path     string
	location *time.Location
	logger   *zerolog.Logger
}

func NewScheduleExporter(repo domain.Repository, path string, location *time.Location, logger *zerolog.Logger) *ScheduleExporter {
	return &ScheduleExporter{repo: repo, path: path, location: location, logger: logger}
}

// Export writes the schedule for [startDate, endDate] and returns the file path.
func (e *ScheduleExporter) Export(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	slots, err := e.repo.GetBookedSlots(ctx, startDate, endDate.AddDate(0, 0, 1), false)
	if err != nil {
		return "", fmt.Errorf("error getting booked slots: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Schedule"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Lessons: %s - %s",
		startDate.Format("Jan 2, 2006"), endDate.Format("Jan 2, 2006")))

	dateCols := e.writeDateHeaders(f, sheetName, startDate, endDate)
	e.writePeriodHeaders(f, sheetName)
	e.writeSlots(ctx, f, sheetName, slots, dateCols)

	_ = f.SetColWidth(sheetName, "A", "A", 18)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 24)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(dateCols) + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("slots", len(slots)).Msg("schedule export created")
	return filePath, nil
}

func (e *ScheduleExporter) writeDateHeaders(f *excelize.File, sheetName string, startDate, endDate time.Time) map[string]int {
	col := 2
	current := startDate
	dateCols := make(map[string]int)

	for !current.After(endDate) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, current.Format("Mon Jan 2"))
		dateCols[current.Format("2006-01-02")] = col

		style, _ := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		col++
		current = current.AddDate(0, 0, 1)
	}
	return dateCols
}

func (e *ScheduleExporter) writePeriodHeaders(f *excelize.File, sheetName string) {
	row := 3
	for _, label := range timetable.Labels() {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, label)

		style, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
			Font: &excelize.Font{Bold: true},
		})
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		row++
	}
}

func (e *ScheduleExporter) writeSlots(ctx context.Context, f *excelize.File, sheetName string, slots []*models.Slot, dateCols map[string]int) {
	periodRows := make(map[string]int, len(timetable.Labels()))
	for i, label := range timetable.Labels() {
		periodRows[label] = 3 + i
	}

	cells := make(map[string][]string)
	for _, slot := range slots {
		local := slot.StartTime.In(e.location)
		col, ok := dateCols[local.Format("2006-01-02")]
		if !ok {
			continue
		}
		row, ok := periodRows[slot.PeriodLabel]
		if !ok {
			continue
		}

		cell, _ := excelize.CoordinatesToCellName(col, row)
		cells[cell] = append(cells[cell], e.describeSlot(ctx, slot))
	}

	for cell, lines := range cells {
		_ = f.SetCellValue(sheetName, cell, strings.Join(lines, "\n"))
	}
}

func (e *ScheduleExporter) describeSlot(ctx context.Context, slot *models.Slot) string {
	provider := e.userName(ctx, slot.ProviderID)
	client := ""
	if slot.ClientID != nil {
		client = e.userName(ctx, *slot.ClientID)
	}
	if client == "" {
		return fmt.Sprintf("%s (%s)", provider, slot.Location)
	}
	return fmt.Sprintf("%s / %s (%s)", provider, client, slot.Location)
}

func (e *ScheduleExporter) userName(ctx context.Context, id string) string {
	user, err := e.repo.GetUser(ctx, id)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", id).Msg("export could not resolve user")
		return id
	}
	return user.DisplayName
}

// handleExport builds the next two weeks of schedule and serves the file.
// Admin only: the grid exposes every client's bookings.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	caller, err := s.callerAsUser(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if !caller.IsAdmin {
		writeError(w, http.StatusForbidden, "permission denied")
		return
	}

	start := time.Now().In(s.exporter.location)
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.exporter.location)
	end := start.AddDate(0, 0, models.DefaultExportRangeDays-1)

	filePath, err := s.exporter.Export(r.Context(), start, end)
	if err != nil {
		s.logger.Error().Err(err).Msg("schedule export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(filePath)))
	http.ServeFile(w, r, filePath)
}
