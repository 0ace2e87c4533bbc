package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/justsurfingit/Placement-Tracker/internal/common"
	"github.com/justsurfingit/Placement-Tracker/internal/dtos"
	"github.com/justsurfingit/Placement-Tracker/internal/models"
	"go.uber.org/zap"
)

// Extractor turns recruiter email text into an unverified candidate record.
// hint names the company of an existing placement for follow-up emails.
type Extractor interface {
	Extract(ctx context.Context, emailText, hint string) (models.Candidate, error)
}

const maxEmailBytes = 20000

// NewExtractor builds the extractor for provider ("langchain" or "genai").
// On error the returned Extractor is nil and extraction stays disabled.
func NewExtractor(ctx context.Context, provider, apiKey, model string, timeout time.Duration, log *zap.Logger) (Extractor, error) {
	switch provider {
	case "", "langchain":
		svc, err := NewLLMService(ctx, apiKey, model, timeout, log)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case "genai":
		g, err := NewGenAIExtractor(ctx, apiKey, model, timeout, log)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", provider)
}

const newPlacementPrompt = `
You are a placement data extraction assistant. Extract the placement details from the email below.

### OUTPUT SCHEMA (flat JSON object, exactly these keys):
{
  "company_name": "Company name",
  "role": "Job role/position",
  "ctc": "Cost to company or salary, e.g. 12 LPA",
  "location": "Job location",
  "eligibility": "Eligibility criteria text",
  "registration_deadline": "YYYY-MM-DD",
  "registration_deadline_time": "HH:MM, 23:59 when only a date is given",
  "registration_link": "Registration URL",
  "status": "Applied",
%s}

### INSTRUCTIONS:
- Dates in YYYY-MM-DD, times in 24-hour HH:MM.
- Tests: look for "test", "round", "assessment", "exam", "coding", "aptitude".
- Interviews: look for "interview", "technical round", "HR round", "final round", "managerial".
- Use null for anything the email does not clearly state. Do not guess and never write "Not specified".
- Return only the JSON object, without markdown code fences.

### EMAIL:
%s
`

const followUpPrompt = `
You are a placement data extraction assistant. The email below is a follow-up for an existing
placement at %q. Extract only what this email states about tests, interviews, results and status.

### OUTPUT SCHEMA (flat JSON object, exactly these keys):
{
  "company_name": %q,
  "status": "Applied, In Progress, Selected, Rejected, Withdrawn or Not Eligible",
%s}

### INSTRUCTIONS:
- Dates in YYYY-MM-DD, times in 24-hour HH:MM.
- Test results are one of: pending, Passed, Failed, Waitlisted.
- Interview results are one of: pending, Selected, Rejected, Waitlisted.
- Use null for anything the email does not clearly state. Do not guess and never write "Not specified".
- Return only the JSON object, without markdown code fences.

### EMAIL:
%s
`

func roundSchema(withResults bool) string {
	var b strings.Builder
	for i := 1; i <= models.MaxTestRounds; i++ {
		fmt.Fprintf(&b, "  \"test_%d\": \"Test %d description\",\n", i, i)
		fmt.Fprintf(&b, "  \"test_%d_date\": \"YYYY-MM-DD\",\n", i)
		fmt.Fprintf(&b, "  \"test_%d_time\": \"HH:MM\",\n", i)
		if withResults {
			fmt.Fprintf(&b, "  \"result_%d\": \"Test %d result\",\n", i, i)
		}
	}
	for i := 1; i <= models.MaxInterviewRounds; i++ {
		fmt.Fprintf(&b, "  \"interview_%d\": \"Interview %d type, e.g. Technical or HR\",\n", i, i)
		fmt.Fprintf(&b, "  \"interview_%d_date\": \"YYYY-MM-DD\",\n", i)
		fmt.Fprintf(&b, "  \"interview_%d_time\": \"HH:MM\",\n", i)
		if withResults {
			fmt.Fprintf(&b, "  \"interview_result_%d\": \"Interview %d result\",\n", i, i)
		}
	}
	return strings.TrimSuffix(b.String(), ",\n") + "\n"
}

// BuildExtractionPrompt caps the email at 20000 bytes and picks the
// new-placement or follow-up prompt depending on hint.
func BuildExtractionPrompt(emailText, hint string) string {
	emailText = truncateUTF8(strings.TrimSpace(emailText), maxEmailBytes)
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return fmt.Sprintf(newPlacementPrompt, roundSchema(false), emailText)
	}
	return fmt.Sprintf(followUpPrompt, hint, hint, roundSchema(true), emailText)
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// RecoverJSONObject strips markdown fences and returns the outermost {...} span.
func RecoverJSONObject(text string) (string, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseExtractionResponse turns raw model output into a candidate.
func ParseExtractionResponse(text string) (models.Candidate, error) {
	obj, ok := RecoverJSONObject(text)
	if !ok {
		return models.Candidate{}, common.NewError(common.CodeExtraction, "could not find JSON in the AI response", nil)
	}
	payload, err := dtos.DecodeExtractionPayload([]byte(obj))
	if err != nil {
		return models.Candidate{}, common.NewError(common.CodeExtraction, "the AI response is not valid JSON", err)
	}
	return payload.ToCandidate(), nil
}

// completion is one prompt/response exchange with a model.
type completion func(ctx context.Context, prompt string) (string, error)

func runExtraction(ctx context.Context, log *zap.Logger, provider string, timeout time.Duration, complete completion, emailText, hint string) (models.Candidate, error) {
	if strings.TrimSpace(emailText) == "" {
		return models.Candidate{}, common.NewValidationError("email text is required", map[string]string{"email_text": "required"})
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := complete(ctx, BuildExtractionPrompt(emailText, hint))
	if err != nil {
		log.Warn("extraction call failed", zap.String("provider", provider), zap.Error(err))
		return models.Candidate{}, common.NewError(common.CodeExtraction, "AI extraction failed", err)
	}
	candidate, err := ParseExtractionResponse(resp)
	if err != nil {
		log.Warn("unparsable extraction response",
			zap.String("provider", provider),
			zap.Int("response_bytes", len(resp)),
			zap.Error(err))
		return models.Candidate{}, err
	}
	log.Debug("extraction finished",
		zap.String("provider", provider),
		zap.Bool("follow_up", hint != ""),
		zap.Duration("took", time.Since(start)))
	return candidate, nil
}
