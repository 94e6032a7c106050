package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"time"
	"unicode"

	"github.com/soaringjerry/quizly/internal/models"
)

const (
	ExportFormatWide = "wide"
	ExportFormatLong = "long"
)

// ExportResult is a rendered CSV download.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportResponses renders every response to a quiz owned by id as CSV.
// format is "wide" (one row per response, default) or "long" (one row per answer).
func (s *ResponseService) ExportResponses(ctx context.Context, id models.Identity, quizID, format string) (*ExportResult, error) {
	switch format {
	case "":
		format = ExportFormatWide
	case ExportFormatWide, ExportFormatLong:
	default:
		return nil, NewInvalidError("unsupported format")
	}
	listing, err := s.ListResponses(ctx, id, quizID)
	if err != nil {
		return nil, err
	}
	var body []byte
	if format == ExportFormatLong {
		body, err = ExportLongCSV(listing)
	} else {
		body, err = ExportWideCSV(listing)
	}
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    exportFilename(listing.Quiz.Title, format),
		ContentType: "text/csv; charset=utf-8",
		Body:        body,
	}, nil
}

// ExportWideCSV renders one row per response with a column per question in
// question order. Unanswered questions read "No answer".
func ExportWideCSV(listing *ResponseListing) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"Submitted At", "Submitter Name", "Submitter Email"}
	for _, q := range listing.Questions {
		header = append(header, q.Text)
	}
	_ = w.Write(header)
	for _, r := range listing.Responses {
		byQuestion := make(map[string]string, len(r.Answers))
		for _, a := range r.Answers {
			byQuestion[a.QuestionID] = a.Value
		}
		row := make([]string, 0, len(header))
		row = append(row, r.SubmittedAt.UTC().Format(time.RFC3339), orDefault(r.SubmitterName, "Anonymous"), orDefault(r.SubmitterEmail, "N/A"))
		for _, q := range listing.Questions {
			v, ok := byQuestion[q.ID]
			if !ok || v == "" {
				v = "No answer"
			}
			row = append(row, v)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportLongCSV renders one row per stored answer.
func ExportLongCSV(listing *ResponseListing) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"response_id", "submitted_at", "submitter_name", "submitter_email", "question_id", "question", "value"})
	for _, r := range listing.Responses {
		for _, a := range r.Answers {
			text := ""
			if a.Question != nil {
				text = a.Question.Text
			}
			rec := []string{
				r.ID,
				r.SubmittedAt.UTC().Format(time.RFC3339),
				orDefault(r.SubmitterName, ""),
				orDefault(r.SubmitterEmail, ""),
				a.QuestionID,
				text,
				a.Value,
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func orDefault(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

// exportFilename keeps letters, digits, dash and underscore from the title.
func exportFilename(title, format string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "quiz"
	}
	if format == ExportFormatLong {
		return name + "_responses_long.csv"
	}
	return name + "_responses.csv"
}
