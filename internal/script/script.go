// Package script parses meditation session transcripts into timed cues.
//
// A transcript is plain text with one cue per line in the form
// "MM:SS text". Minutes may exceed 59 for long sessions; seconds must be
// between 0 and 59. Any line that does not match this shape is a hard
// parse error and the whole parse is rejected, so a caller never adopts a
// partially parsed cue set.
package script

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Cue is a single scheduled instruction: speak Text when the session clock
// reaches OffsetSeconds. Cues are immutable once parsed; the session layer
// tracks dispatch state separately, keyed by offset.
type Cue struct {
	OffsetSeconds int    // Due time relative to session start
	Text          string // Text to synthesize and speak
}

// ParseError describes a malformed transcript line. It is fatal to the
// parse: no cues are returned alongside it.
type ParseError struct {
	Line    int    // 1-based line number
	Content string // The offending line
	Reason  string // Why it was rejected
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("script: line %d: %s: %q", e.Line, e.Reason, e.Content)
}

// cueLineRegex matches "MM:SS text". Minutes are unbounded, seconds are
// two digits, and the text must be non-empty.
var cueLineRegex = regexp.MustCompile(`^(\d+):([0-5]\d)\s+(\S.*)$`)

// Parser extracts cues from transcript content.
type Parser struct {
	// AllowBlankLines controls whether empty lines are skipped rather
	// than rejected. Trailing newlines produce empty lines, so this
	// defaults to true in NewParser.
	AllowBlankLines bool
}

// NewParser creates a transcript parser with default options.
func NewParser() *Parser {
	return &Parser{AllowBlankLines: true}
}

// Parse converts transcript content into an ordered cue list, preserving
// input order. It returns a *ParseError for the first malformed line and
// no cues at all, leaving any previously parsed set untouched by the
// caller.
func (p *Parser) Parse(content string) ([]Cue, error) {
	lines := strings.Split(content, "\n")
	cues := make([]Cue, 0, len(lines))

	for i, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if strings.TrimSpace(trimmed) == "" {
			if p.AllowBlankLines {
				continue
			}
			return nil, &ParseError{Line: i + 1, Content: line, Reason: "empty line"}
		}

		m := cueLineRegex.FindStringSubmatch(trimmed)
		if m == nil {
			return nil, &ParseError{Line: i + 1, Content: trimmed, Reason: "expected MM:SS text"}
		}

		minutes, err := strconv.Atoi(m[1])
		if err != nil {
			// Unreachable given the regex, but strconv can overflow.
			return nil, &ParseError{Line: i + 1, Content: trimmed, Reason: "invalid minutes"}
		}
		seconds, _ := strconv.Atoi(m[2])

		cues = append(cues, Cue{
			OffsetSeconds: minutes*60 + seconds,
			Text:          strings.TrimSpace(m[3]),
		})
	}

	return cues, nil
}

// ParseFile reads and parses a transcript file.
func (p *Parser) ParseFile(path string) ([]Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: unable to read %s: %w", path, err)
	}
	return p.Parse(string(data))
}

// ParseFile parses a transcript file with default parser options.
func ParseFile(path string) ([]Cue, error) {
	return NewParser().ParseFile(path)
}
