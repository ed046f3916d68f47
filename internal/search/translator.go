// Package search turns free-text user queries into structured filters over
// the paper metadata store. It is the inverse of the ingestion extraction:
// the same completion contract, but aimed at interpreting a question rather
// than a scanned header.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"qphub/internal/extract"
	"qphub/internal/llm"
	"qphub/internal/logger"
	"qphub/internal/repository"
)

// Translator converts a user query into an extract.Result using the
// completion endpoint, then canonicalizes it with the same deterministic
// table the ingestion side uses, so both sides agree on representation.
type Translator struct {
	completer llm.Completer
	log       zerolog.Logger
}

// NewTranslator constructs a query translator on top of a completion client.
func NewTranslator(completer llm.Completer) *Translator {
	return &Translator{
		completer: completer,
		log:       logger.WithComponent("search"),
	}
}

const queryPromptTemplate = `You are an expert at analyzing user queries about question papers and extracting key metadata into a JSON object. Your goal is to identify the department, subject, and year mentioned.

Follow these rules:
1.  **Output Format:** Respond ONLY with a single, valid JSON object. Do not include explanations or markdown.
2.  **Fields:** Extract "department", "subject", and "year".
3.  **Completeness:** Try your best to fill all fields based on the query. Only use null if a piece of information is clearly absent or impossible to determine.
4.  **Subject:** Extract the fullest subject phrase present, not a single keyword.
5.  **Typo Correction:** If you are highly confident (e.g., >95%% sure) that a word in the query related to department or subject is a common typo (like "algoritms" instead of "algorithms", or "engneering" instead of "engineering"), you may return the corrected term. Otherwise, return the term as written in the query.
6.  **Year:** Extract the four-digit year.

[EXAMPLE 1]
Query: "find papers for CSE department from 2023"
JSON Output: {"department": "CSE", "subject": null, "year": 2023}

[EXAMPLE 2]
Query: "show me the algoritms papers from computr science"
JSON Output: {"department": "computer science", "subject": "algorithms", "year": null}

[EXAMPLE 3]
Query: "any question paper for mechanical 2022?"
JSON Output: {"department": "mechanical", "subject": null, "year": 2022}

Now, analyze the following query:

Query: "%s"
JSON Output:
`

// BuildPrompt assembles the query-translation prompt.
func BuildPrompt(query string) string {
	return fmt.Sprintf(queryPromptTemplate, query)
}

// Translate runs the completion and returns the canonicalized criteria.
// Unlike the ingestion extractor there is no regex backstop here: a query
// with no recognizable fields simply yields an empty filter.
func (t *Translator) Translate(ctx context.Context, query string) (*extract.Result, error) {
	out, err := t.completer.Complete(ctx, BuildPrompt(query))
	if err != nil {
		t.log.Error().Err(err).Str("query", query).Msg("query completion failed")
		return nil, fmt.Errorf("%w: %v", extract.ErrCompletion, err)
	}

	res, err := extract.ParseCompletion(out)
	if err != nil {
		t.log.Error().Err(err).Str("response", out).Msg("query completion unparseable")
		return nil, err
	}

	res.Department = extract.CanonicalDepartment(res.Department)
	res.Subject = strings.ToLower(strings.TrimSpace(res.Subject))

	t.log.Info().
		Str("query", query).
		Str("department", res.Department).
		Str("subject", res.Subject).
		Msg("query translated")
	return res, nil
}

// BuildFilter maps translated criteria onto a store filter. Each present
// field becomes a condition; a year outside (1900, 2100) is dropped rather
// than producing a nonsense equality match.
func BuildFilter(res *extract.Result) repository.Filter {
	f := repository.Filter{
		Department: res.Department,
		Subject:    res.Subject,
	}
	if res.Year != nil {
		if y := *res.Year; y > 1900 && y < 2100 {
			f.Year = res.Year
		}
	}
	return f
}
