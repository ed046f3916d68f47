// Package extract recovers {department, subject, year} metadata from noisy
// OCR text. The heavy lifting is delegated to a language-model completion;
// deterministic post-processing (year regex backstop, department alias
// table) corrects the model's known weak points.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"qphub/internal/llm"
	"qphub/internal/logger"
)

var (
	// ErrCompletion marks a transport or HTTP failure of the completion call.
	ErrCompletion = errors.New("completion request failed")
	// ErrMalformed marks a completion that did not parse as the expected JSON object.
	ErrMalformed = errors.New("malformed completion response")
)

// Result is the transient per-request extraction output. All fields are
// always present: an unrecoverable department or subject is the empty
// string, an unrecoverable year is nil. Err carries the stage failure
// marker; downstream stages must check it before trusting the fields.
type Result struct {
	Department string `json:"department"`
	Subject    string `json:"subject"`
	Year       *int   `json:"year"`
	Err        error  `json:"-"`
}

// Extractor asks the completion endpoint for exam-paper metadata using a
// rules-plus-few-shot prompt. Exam headers are too irregular across
// institutions for pure pattern matching, which is the whole reason for the
// model dependency.
type Extractor struct {
	completer llm.Completer
	log       zerolog.Logger
}

// NewExtractor constructs a metadata extractor on top of a completion client.
func NewExtractor(completer llm.Completer) *Extractor {
	return &Extractor{
		completer: completer,
		log:       logger.WithComponent("extract"),
	}
}

const extractPromptTemplate = `You are a precision data extraction engine. Your sole task is to analyze text from a university question paper and extract specific metadata fields into a clean JSON object.

Follow these rules exactly:
1.  **Output Format:** Respond ONLY with a single, valid JSON object. Do not include any other text or explanations.
2.  **department:** Extract the full official department name, often found after "DEPARTMENT OF".
3.  **subject:** Extract only the subject name. The name often follows keywords like "SUBJECT:" or "Sub. Code & Title :". Explicitly exclude any subject codes (e.g., "(ENIR 11)"). A phrase already reported as the department must not also be reported as the subject.
4.  **year:** Extract the four-digit year of the examination, if present. For academic-year ranges like "2022-23", report the later year.
5.  **Missing Values:** If any field cannot be found, its value must be null. Do not invent or infer information not explicitly present in the text.

---
[EXAMPLE 1]
Input Text:
"""
NATIONAL INSTITUTE OF TECHONOLOGY, TIRUCHIRAPALLI
DEPARTMENT OF ENERGY & ENVIRONMENT
SUBJECT: ENERGY AND ENVIRONMENT (ENIR 11)
"""
Correct JSON Output:
{
  "department": "ENERGY & ENVIRONMENT",
  "subject": "ENERGY AND ENVIRONMENT",
  "year": null
}
---
[EXAMPLE 2]
Input Text:
"""
B.Tech. DEGREE EXAMINATION, NOVEMBER/DECEMBER 2023.
Computer Science and Engineering
CS 8351 - Digital Principles and System Design
"""
Correct JSON Output:
{
  "department": "Computer Science and Engineering",
  "subject": "Digital Principles and System Design",
  "year": 2023
}
---

Now, perform the same task on the following text:

[TEXT TO ANALYZE]
"""
%s
"""
`

// BuildPrompt assembles the extraction prompt for the given (already
// truncated) text.
func BuildPrompt(text string) string {
	return fmt.Sprintf(extractPromptTemplate, text)
}

// Extract runs the completion and parses its reply. A failed call or an
// unparseable reply never raises: the returned Result carries the error
// marker and unknown fields instead.
func (e *Extractor) Extract(ctx context.Context, text string) *Result {
	out, err := e.completer.Complete(ctx, BuildPrompt(text))
	if err != nil {
		e.log.Error().Err(err).Msg("metadata completion failed")
		return &Result{Err: fmt.Errorf("%w: %v", ErrCompletion, err)}
	}

	res, err := ParseCompletion(out)
	if err != nil {
		e.log.Error().Err(err).Str("response", out).Msg("metadata completion unparseable")
		return &Result{Err: err}
	}
	return res
}

// completionPayload tolerates the model returning the year as a number or
// as a quoted string.
type completionPayload struct {
	Department *string         `json:"department"`
	Subject    *string         `json:"subject"`
	Year       json.RawMessage `json:"year"`
}

// ParseCompletion decodes a model reply into a Result. Markdown code fences
// around the JSON are tolerated. Absent fields default to their unknown
// values rather than being omitted.
func ParseCompletion(raw string) (*Result, error) {
	cleaned := StripFences(raw)

	var p completionPayload
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	res := &Result{Year: coerceYear(p.Year)}
	if p.Department != nil {
		res.Department = strings.TrimSpace(*p.Department)
	}
	if p.Subject != nil {
		res.Subject = strings.TrimSpace(*p.Subject)
	}
	return res, nil
}

// StripFences removes a surrounding markdown code block, which some models
// emit despite JSON-only instructions.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	} else {
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// coerceYear accepts a JSON number or a numeric string; anything else
// (null, empty, garbage) is treated as absent. Unmarshalling into *int
// keeps a literal null distinct from a real value.
func coerceYear(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}

	var n *int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return &v
		}
	}
	return nil
}
