package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"tms/internal/domain"
	"tms/internal/domain/models"
	"tms/internal/utils"

	"github.com/phpdave11/gofpdf"
)

// ReceiptService renders payment receipts as PDF.
type ReceiptService struct {
	Payments  PaymentService
	RequestID string
	Loader    func(context.Context, int64) (models.PaymentReceipt, error)
}

func (s ReceiptService) load(ctx context.Context, p domain.Principal, id int64) (models.PaymentReceipt, error) {
	if s.Loader != nil {
		return s.Loader(ctx, id)
	}
	return s.Payments.Receipt(ctx, p, id)
}

// PDF returns the receipt document and a download filename.
func (s ReceiptService) PDF(ctx context.Context, p domain.Principal, id int64) ([]byte, string, error) {
	rc, err := s.load(ctx, p, id)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(s.RequestID, "receipt", "generate_pdf", fmt.Sprintf("receipt_id=%d", id))
	return buildReceiptPDF(rc)
}

func buildReceiptPDF(rc models.PaymentReceipt) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Transport Fee Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "TRANSPORT FEE RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 7, "Receipt No : "+rc.ReceiptNumber)
	pdf.Ln(7)
	pdf.Cell(0, 7, "Issued     : "+utils.FormatDateTime(rc.IssuedAt))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Received from:")
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Student       : %s", safe(rc.StudentName, "-")),
		fmt.Sprintf("Roll number   : %s", safe(rc.RollNumber, "-")),
		fmt.Sprintf("Route         : %s %s", safe(rc.RouteNumber, "-"), safe(rc.RouteName, "")),
		fmt.Sprintf("Academic year : %s", safe(rc.AcademicYear, "-")),
		fmt.Sprintf("Semester      : %s", safe(rc.Semester, "-")),
		fmt.Sprintf("Payment ref   : %s", safe(rc.PaymentRef, "-")),
	}
	for _, l := range lines {
		pdf.Cell(0, 7, l)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Amount paid: "+formatAmount(rc.Amount, rc.Currency))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "This is a computer generated receipt and does not need a signature.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("RECEIPT_%s.pdf", safeFilenamePart(rc.ReceiptNumber)), nil
}

// formatAmount renders minor units; INR gets Indian grouping.
func formatAmount(minor int64, currency string) string {
	whole, paise := minor/100, minor%100
	if currency == "" || currency == "INR" {
		if paise == 0 {
			return utils.FormatINR(whole)
		}
		return fmt.Sprintf("%s.%02d", utils.FormatINR(whole), paise)
	}
	return fmt.Sprintf("%s %d.%02d", currency, whole, paise)
}

func safe(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
