// Package fetch downloads result pages and reduces them to readable text.
// Every fetch resolves to an Outcome; errors never escape a Fetcher.
package fetch

import (
	"context"
	"fmt"
	"time"
)

type Kind int

const (
	Success Kind = iota
	Timeout
	NetworkError
	ExtractionError
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Timeout:
		return "timeout"
	case NetworkError:
		return "network_error"
	case ExtractionError:
		return "extraction_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Failure reasons with a fixed diagnostic text.
const (
	ReasonTimedOut    = "timed out"
	ReasonNoBody      = "could not download"
	ReasonNoText      = "no text extracted"
	ReasonInterrupted = "interrupted"
)

// Target is a URL together with its rank in the search results.
type Target struct {
	Index int
	URL   string
}

type Outcome struct {
	Index  int
	URL    string
	Kind   Kind
	Text   string
	Reason string
	// Limit is the per-fetch timeout that applied, used in the timeout diagnostic.
	Limit time.Duration
}

func (o Outcome) OK() bool { return o.Kind == Success }

// Diagnostic renders the inline notice shown in place of content for a failed fetch.
func (o Outcome) Diagnostic() string {
	switch {
	case o.Kind == Success:
		return ""
	case o.Kind == Timeout:
		return fmt.Sprintf("⚠️ Request timed out for %s after %d seconds ⏳", o.URL, int(o.Limit.Seconds()))
	case o.Kind == ExtractionError:
		return fmt.Sprintf("⚠️ Could not extract text from %s 🚫", o.URL)
	case o.Reason == ReasonNoBody:
		return fmt.Sprintf("⚠️ Could not download content from %s 🚫", o.URL)
	default:
		return fmt.Sprintf("⚠️ Error fetching content from %s: %s", o.URL, o.Reason)
	}
}

// Fetcher retrieves one page. Implementations must not return until the
// outcome is known and must honor ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) Outcome
}

// Extractor turns raw page content into plain text. ok is false when no text was found.
type Extractor interface {
	Extract(raw, pageURL string) (text string, ok bool)
}

func succeeded(url, text string) Outcome {
	return Outcome{URL: url, Kind: Success, Text: text}
}

func failed(url string, kind Kind, reason string) Outcome {
	return Outcome{URL: url, Kind: kind, Reason: reason}
}
