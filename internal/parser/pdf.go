package parser

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// FormatPDF is the registry key for the PDF adapter.
const FormatPDF = "pdf"

// Transaction line layout: posting date, optional transaction date,
// description, signed amount, running balance. Balances may carry comma or
// space thousands separators.
var pdfLinePattern = regexp.MustCompile(
	`^(\d{2}/\d{2}/\d{4})\s+(?:(\d{2}/\d{2}/\d{4})\s+)?(\S.*?)\s+(-?\d[\d,]*\.\d{2})\s+(-?\d+(?:[\s,]\d{3})*\.\d{2})$`)

var pdfDateToken = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}\b`)

var pdfPeriodPattern = regexp.MustCompile(
	`From\s+Date:\s*(\d{2}/\d{2}/\d{4})\s+To\s+Date:\s*(\d{2}/\d{2}/\d{4})`)

// PDFAdapter extracts the text stream of a PDF statement and recovers one
// RawRecord per transaction line.
type PDFAdapter struct{}

func (a *PDFAdapter) Format() string { return FormatPDF }

func (a *PDFAdapter) Parse(data []byte) ([]RawRecord, error) {
	text, err := extractText(data)
	if err != nil {
		return nil, newError(UnrecognizedLayout, -1, "extracting PDF text: %v", err)
	}
	return parseStatementText(text)
}

// PeriodHint reads the declared period printed in the statement header.
func (a *PDFAdapter) PeriodHint(data []byte) (start, end time.Time, ok bool) {
	text, err := extractText(data)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	m := pdfPeriodPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	start, err = time.Parse("02/01/2006", m[1])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err = time.Parse("02/01/2006", m[2])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func extractText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// parseStatementText applies line segmentation to extracted statement text.
// A line starting with a DD/MM/YYYY token opens a new record; a non-empty
// line without a leading date token continues the previous record's
// description (statement layouts wrap long descriptions onto the next line).
func parseStatementText(text string) ([]RawRecord, error) {
	var records []RawRecord
	sawDateLine := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "*") || strings.HasPrefix(line, "Available Balance:") {
			continue
		}

		if !pdfDateToken.MatchString(line) {
			// Continuation of a wrapped description. Lines before the first
			// transaction are header noise and are dropped.
			if len(records) > 0 {
				records[len(records)-1].Description += " " + line
			}
			continue
		}

		sawDateLine = true
		m := pdfLinePattern.FindStringSubmatch(line)
		if m == nil {
			// Date-prefixed but not a transaction line (e.g. the period
			// header repeats dates); skip.
			continue
		}

		postingDate := m[1]
		transactionDate := m[2]
		if transactionDate == "" {
			transactionDate = postingDate
		}

		rec := RawRecord{
			PostingDate:     postingDate,
			TransactionDate: transactionDate,
			Description:     strings.TrimSpace(m[3]),
			Balance:         strings.ReplaceAll(m[5], " ", ""),
			Line:            len(records),
		}

		amount := m[4]
		if strings.HasPrefix(amount, "-") {
			rec.MoneyOut = strings.TrimPrefix(amount, "-")
			rec.Type = "DEBIT"
		} else {
			rec.MoneyIn = amount
			rec.Type = "CREDIT"
		}

		records = append(records, rec)
	}

	if !sawDateLine {
		// Not a statement at all: no date-prefixed lines anywhere.
		return nil, newError(UnrecognizedLayout, -1, "no date-prefixed transaction lines found")
	}
	if len(records) == 0 {
		return nil, newError(UnrecognizedLayout, -1, "no transaction lines matched the statement layout")
	}
	return records, nil
}
