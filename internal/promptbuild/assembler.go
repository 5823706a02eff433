// Package promptbuild assembles the grounding prompt sent to the model.
package promptbuild

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kayz/perplex/internal/conversation"
	"github.com/kayz/perplex/internal/fetch"
	"github.com/kayz/perplex/internal/search"
)

// DefaultSystemInstruction is paired with every prompt unless configured otherwise.
const DefaultSystemInstruction = "You are a genius AI search assistant. You answer user queries concisely and accurately " +
	"using the provided search results and website content. Format your responses in Markdown for terminal output, " +
	"using bullet points or numbered lists to organize information. Cite sources using markdown links, for example: " +
	"The current local time in New Delhi, India is [12:07 PM](https://time.is) on [Tuesday, February 18, 2025](https://time.is)."

const (
	noContent   = "No content available."
	emptyMarker = "(none)"
)

// Request holds everything a single prompt is built from.
type Request struct {
	Query    string
	Results  []search.Result
	Outcomes []fetch.Outcome
	History  []conversation.Turn
}

// Assembler renders requests into prompt text. Output depends only on the
// request, so identical requests give byte-identical prompts.
type Assembler struct {
	MaxContentLength int
	// IncludeFailures renders failed fetches as inline diagnostics.
	IncludeFailures bool
}

func (a *Assembler) Build(req Request) string {
	var sections []section

	if len(req.History) > 0 {
		sections = append(sections, section{title: "Conversation History", content: formatHistory(req.History)})
	}
	sections = append(sections,
		section{title: "User's Query", content: strings.TrimSpace(req.Query)},
		section{title: "Search Results", content: formatResults(req.Results)},
		section{title: "Website Contents", content: a.formatContents(req.Outcomes)},
	)
	return renderSections(sections)
}

type section struct {
	title   string
	content string
}

func renderSections(sections []section) string {
	var out strings.Builder
	for i, s := range sections {
		if i > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString("### ")
		out.WriteString(s.title)
		out.WriteString("\n\n")
		if strings.TrimSpace(s.content) == "" {
			out.WriteString(emptyMarker)
			continue
		}
		out.WriteString(s.content)
	}
	return out.String()
}

func formatHistory(turns []conversation.Turn) string {
	blocks := make([]string, 0, len(turns))
	for i, t := range turns {
		blocks = append(blocks, fmt.Sprintf("[%d] User: %s\nAssistant: %s", i+1, t.Query, t.Response))
	}
	return strings.Join(blocks, "\n\n")
}

func formatResults(results []search.Result) string {
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("[%d] %s\n%s\n%s", i+1, r.Title, r.Description, r.URL))
	}
	return strings.Join(blocks, "\n\n")
}

// formatContents orders blocks by result rank since outcomes arrive in completion order.
func (a *Assembler) formatContents(outcomes []fetch.Outcome) string {
	sorted := make([]fetch.Outcome, len(outcomes))
	copy(sorted, outcomes)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	var blocks []string
	for _, o := range sorted {
		var body string
		switch {
		case o.OK():
			body = Summarize(o.Text, a.MaxContentLength)
		case a.IncludeFailures:
			body = o.Diagnostic()
		default:
			continue
		}
		blocks = append(blocks, fmt.Sprintf("[Content %d] %s\n%s", o.Index, o.URL, body))
	}
	return strings.Join(blocks, "\n\n")
}

// Summarize cuts text to max runes and marks the cut with "...".
// The cutoff counts characters, not model tokens.
func Summarize(text string, max int) string {
	if strings.TrimSpace(text) == "" {
		return noContent
	}
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

// GroundingResults picks the results quoted in the prompt: the fetched top
// results when any fetch succeeded, otherwise every result.
func GroundingResults(results []search.Result, outcomes []fetch.Outcome, topK int) []search.Result {
	for _, o := range outcomes {
		if o.OK() {
			if topK < len(results) {
				return results[:topK]
			}
			return results
		}
	}
	return results
}
