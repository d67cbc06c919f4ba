package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/umuve/dispatch-engine/internal/model"
)

type PDFGenerator interface {
	GenerateReceipt(receipt model.Receipt) ([]byte, error)
}

type ExcelGenerator interface {
	Generate(export model.FleetExport) ([]byte, error)
}

// ReportService renders customer receipts and operator fleet exports.
type ReportService struct {
	jobs     JobStore
	payments PaymentStore
	users    UserStore
	pdf      PDFGenerator
	excel    ExcelGenerator
	log      zerolog.Logger
}

func NewReportService(
	jobs JobStore,
	payments PaymentStore,
	users UserStore,
	pdf PDFGenerator,
	excel ExcelGenerator,
	log zerolog.Logger,
) *ReportService {
	return &ReportService{
		jobs:     jobs,
		payments: payments,
		users:    users,
		pdf:      pdf,
		excel:    excel,
		log:      log,
	}
}

type FileResult struct {
	FileName string
	Content  []byte
}

// Receipt renders the PDF receipt for a paid job.
func (s *ReportService) Receipt(ctx context.Context, principal model.Principal, jobID uuid.UUID) (*FileResult, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if job.CustomerID != principal.UserID && !principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}

	receipt := model.Receipt{Job: *job}

	payment, err := s.payments.GetByJobID(ctx, job.ID)
	if err == nil {
		receipt.Payment = payment
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if receipt.Payment == nil || receipt.Payment.PaymentStatus == model.PaymentStatusPending {
		return nil, fmt.Errorf("%w: job has no settled payment", ErrConflict)
	}

	if customer, uerr := s.users.GetByID(ctx, job.CustomerID); uerr == nil && customer.Name != nil {
		receipt.CustomerName = *customer.Name
	}

	content, err := s.pdf.GenerateReceipt(receipt)
	if err != nil {
		return nil, err
	}
	return &FileResult{
		FileName: fmt.Sprintf("receipt-%s.pdf", strings.ToLower(job.ConfirmationCode)),
		Content:  content,
	}, nil
}

type FleetExportInput struct {
	Principal   model.Principal
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// FleetExport renders the operator's job spreadsheet for a period.
func (s *ReportService) FleetExport(ctx context.Context, input FleetExportInput) (*FileResult, error) {
	if !input.Principal.IsOperator() && !input.Principal.IsAdmin() {
		return nil, ErrPermissionDenied
	}
	if input.PeriodStart.IsZero() || input.PeriodEnd.IsZero() {
		return nil, fmt.Errorf("%w: period dates are required", ErrInvalidInput)
	}

	periodStart := dateOnly(input.PeriodStart)
	periodEnd := dateOnly(input.PeriodEnd)
	if periodStart.After(periodEnd) {
		return nil, fmt.Errorf("%w: period_start must be before or equal to period_end", ErrInvalidInput)
	}
	endExclusive := periodEnd.Add(24 * time.Hour)

	rows, err := s.jobs.ListFleetJobs(ctx, input.Principal.ContractorID, periodStart, endExclusive)
	if err != nil {
		return nil, err
	}

	export := model.FleetExport{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Rows:        rows,
	}
	if operator, uerr := s.users.GetByID(ctx, input.Principal.UserID); uerr == nil && operator.Name != nil {
		export.OperatorName = *operator.Name
	}

	content, err := s.excel.Generate(export)
	if err != nil {
		return nil, err
	}

	name := sanitizeFileName(export.OperatorName)
	if name == "" {
		name = input.Principal.ContractorID.String()
	}
	period := fmt.Sprintf("%s-%s", periodStart.Format("20060102"), periodEnd.Format("20060102"))
	return &FileResult{
		FileName: fmt.Sprintf("fleet-jobs-%s-%s.xlsx", name, period),
		Content:  content,
	}, nil
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	return strings.Trim(string(result), "-")
}
