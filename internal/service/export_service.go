package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/class-scheduler/internal/dto"
	"github.com/noah-isme/class-scheduler/internal/scheduler"
	appErrors "github.com/noah-isme/class-scheduler/pkg/errors"
	"github.com/noah-isme/class-scheduler/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
	ExportFormatICS = "ics"
)

var exportHeaders = []string{"Batch", "Course", "Title", "Type", "Teacher", "Room", "Days", "Start", "End"}

var icsDayCodes = map[scheduler.Weekday]string{
	scheduler.Saturday:  "SA",
	scheduler.Sunday:    "SU",
	scheduler.Monday:    "MO",
	scheduler.Tuesday:   "TU",
	scheduler.Wednesday: "WE",
	scheduler.Thursday:  "TH",
	scheduler.Friday:    "FR",
}

type proposalReader interface {
	Get(ctx context.Context, id string) (*dto.ProposalResponse, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string, subtitle ...string) ([]byte, error)
}

type icsRenderer interface {
	Render(name string, events []export.CalendarEvent) ([]byte, error)
}

// ExportConfig tunes timetable exports.
type ExportConfig struct {
	// Location anchors calendar events; nil means UTC.
	Location *time.Location
	// CalendarWeeks bounds the weekly recurrence of calendar events.
	CalendarWeeks int
	// CSVByteOrderMark prefixes CSV downloads with a UTF-8 BOM.
	CSVByteOrderMark bool
}

// ExportService renders proposals as downloadable timetables.
type ExportService struct {
	proposals proposalReader
	csv       csvRenderer
	pdf       pdfRenderer
	ics       icsRenderer
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService. Nil renderers get the default exporters.
func NewExportService(proposals proposalReader, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, ics icsRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.CalendarWeeks <= 0 {
		cfg.CalendarWeeks = 16
	}
	if csv == nil {
		csv = export.NewCSVExporter(export.WithByteOrderMark(cfg.CSVByteOrderMark))
	}
	if pdf == nil {
		pdf = export.NewLandscapePDFExporter()
	}
	if ics == nil {
		ics = export.NewICSExporter("-//class-scheduler//timetable//EN")
	}
	return &ExportService{
		proposals: proposals,
		csv:       csv,
		pdf:       pdf,
		ics:       ics,
		validator: validator.New(),
		logger:    logger,
		cfg:       cfg,
	}
}

// Export renders proposal id in the requested format (csv when empty).
func (s *ExportService) Export(ctx context.Context, id string, query dto.ExportQuery) (*dto.ExportFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}
	proposal, err := s.proposals.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	format := query.Format
	if format == "" {
		format = ExportFormatCSV
	}
	file := &dto.ExportFile{Filename: fmt.Sprintf("proposal_%s.%s", sanitizeFilename(proposal.ID), format)}
	switch format {
	case ExportFormatCSV:
		file.ContentType = "text/csv"
		file.Body, err = s.csv.Render(timetableDataset(proposal.ScheduleData))
	case ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Body, err = s.pdf.Render(timetableDataset(proposal.ScheduleData),
			"Class schedule proposal",
			fmt.Sprintf("Session %s, %s, generated %s", proposal.SessionID, proposal.Status, proposal.CreatedAt.In(s.cfg.Location).Format("2006-01-02 15:04")),
		)
	case ExportFormatICS:
		file.ContentType = "text/calendar"
		file.Body, err = s.ics.Render("Schedule "+proposal.ID, s.calendarEvents(proposal))
	}
	if err != nil {
		s.logger.Error("proposal export failed", zap.String("proposal_id", id), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return file, nil
}

func timetableDataset(assignments []scheduler.Assignment) export.Dataset {
	rows := make([]map[string]string, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, map[string]string{
			"Batch":   a.BatchCode,
			"Course":  a.CourseCode,
			"Title":   a.CourseTitle,
			"Type":    string(a.ClassType),
			"Teacher": firstNonEmpty(a.TeacherName, a.TeacherID),
			"Room":    firstNonEmpty(a.RoomNumber, a.RoomID),
			"Days":    joinDays(a.DaysOfWeek, ", "),
			"Start":   a.Start.String(),
			"End":     a.End.String(),
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}

// calendarEvents anchors each assignment on the first of its days in the
// Saturday-based week containing the proposal's creation.
func (s *ExportService) calendarEvents(p *dto.ProposalResponse) []export.CalendarEvent {
	created := p.CreatedAt.In(s.cfg.Location)
	midnight := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, s.cfg.Location)
	weekStart := midnight.AddDate(0, 0, -((int(midnight.Weekday()) + 1) % 7))
	until := weekStart.AddDate(0, 0, 7*s.cfg.CalendarWeeks)

	events := make([]export.CalendarEvent, 0, len(p.ScheduleData))
	for i, a := range p.ScheduleData {
		if len(a.DaysOfWeek) == 0 {
			continue
		}
		day := weekStart.AddDate(0, 0, a.DaysOfWeek[0].Ordinal())
		codes := make([]string, 0, len(a.DaysOfWeek))
		for _, d := range a.DaysOfWeek {
			codes = append(codes, icsDayCodes[d])
		}
		events = append(events, export.CalendarEvent{
			UID:         fmt.Sprintf("%s-%d@class-scheduler", p.ID, i),
			Summary:     fmt.Sprintf("%s %s (%s)", a.BatchCode, a.CourseCode, a.ClassType),
			Description: strings.TrimSpace(a.CourseTitle + "\n" + firstNonEmpty(a.TeacherName, a.TeacherID)),
			Location:    firstNonEmpty(a.RoomNumber, a.RoomID),
			Start:       day.Add(time.Duration(a.Start) * time.Minute),
			End:         day.Add(time.Duration(a.End) * time.Minute),
			ByDay:       codes,
			Until:       until,
		})
	}
	return events
}

func joinDays(days []scheduler.Weekday, sep string) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, string(d))
	}
	return strings.Join(parts, sep)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
