// Package sanitize cleans model output before it reaches the client. It is
// a buffered stream transformer: text is windowed so that leakage patterns
// split across chunk boundaries are still caught, pseudo tool-call text is
// suppressed (and recovered as real tool calls when parseable), and glyphs
// outside the allowed script set are dropped.
package sanitize

import (
	"strings"

	"github.com/stevechen1112/aetheria/pkg/models"
)

// windowSize is the number of runes held back before text is released when
// no sentence boundary appears.
const windowSize = 64

const (
	fenceMarker = "```"
	fenceTag    = "tool_code"
	callMarker  = "default_api."
)

// Stats counts what the sanitiser removed, for metrics.
type Stats struct {
	FencesSuppressed int
	CallsSuppressed  int
	GlyphsDropped    int
}

type state int

const (
	stateText state = iota
	stateFence
	stateCall
)

// Sanitizer transforms one stream. Not safe for concurrent use; each turn
// gets its own instance.
type Sanitizer struct {
	emit func(string)

	buf    []rune // unprocessed input
	window []rune // filtered output awaiting a flush point
	state  state

	calls []models.ToolCall
	stats Stats
}

// New creates a sanitiser that hands released text to emit.
func New(emit func(string)) *Sanitizer {
	return &Sanitizer{emit: emit}
}

// Write feeds one chunk of model text.
func (s *Sanitizer) Write(chunk string) {
	s.buf = append(s.buf, []rune(chunk)...)
	s.process(false)
}

// Close flushes everything held back. An unterminated fence or pseudo-call
// at close is still suppressed (never shown), parsed if possible.
func (s *Sanitizer) Close() {
	s.process(true)
	if s.state != stateText {
		s.consumeLeak(string(s.buf), s.state == stateFence)
		s.buf = nil
		s.state = stateText
	}
	s.flushWindow(len(s.window))
}

// Calls returns the tool calls recovered from suppressed leakage, in order.
func (s *Sanitizer) Calls() []models.ToolCall { return s.calls }

// Stats returns removal counters.
func (s *Sanitizer) Stats() Stats { return s.stats }

// Clean sanitises a complete string in one shot.
func Clean(text string) string {
	var b strings.Builder
	sz := New(func(out string) { b.WriteString(out) })
	sz.Write(text)
	sz.Close()
	return b.String()
}

func (s *Sanitizer) process(closing bool) {
	for {
		switch s.state {
		case stateText:
			if !s.scanText(closing) {
				return
			}
		case stateFence:
			body := string(s.buf)
			end := strings.Index(body[len(fenceMarker):], fenceMarker)
			if end < 0 {
				return
			}
			end += len(fenceMarker)
			s.consumeLeak(body[:end+len(fenceMarker)], true)
			s.buf = []rune(body[end+len(fenceMarker):])
			s.state = stateText
		case stateCall:
			n, ok := callEnd(s.buf)
			if !ok {
				return
			}
			s.consumeLeak(string(s.buf[:n]), false)
			s.buf = s.buf[n:]
			s.state = stateText
		}
	}
}

// scanText releases safe text up to the next leakage marker (or a possible
// marker prefix at the buffer tail). It returns true when a full marker was
// found and the state changed.
func (s *Sanitizer) scanText(closing bool) bool {
	text := string(s.buf)

	fenceAt, pendingAt := fenceIndex(text)
	callAt := strings.Index(text, callMarker)

	cut := len(text)
	next := stateText
	if fenceAt >= 0 && (callAt < 0 || fenceAt < callAt) {
		cut, next = fenceAt, stateFence
	} else if callAt >= 0 {
		cut, next = callAt, stateCall
	}

	if next == stateText && !closing {
		// Hold back a tail that may be the start of a marker split
		// across chunks.
		hold := len(text) - markerTail(text)
		if pendingAt >= 0 && pendingAt < hold {
			hold = pendingAt
		}
		cut = hold
	}

	if cut > 0 {
		s.release(text[:cut])
		s.buf = []rune(text[cut:])
	}
	if next != stateText {
		s.state = next
		return true
	}
	return false
}

// fenceIndex finds a ```tool_code fence opening, distinguishing it from
// ordinary code fences, which pass through untouched. The second return is
// the position of a fence whose tag is still incomplete at the buffer end
// (hold it back and wait), or -1.
func fenceIndex(text string) (int, int) {
	from := 0
	for {
		i := strings.Index(text[from:], fenceMarker)
		if i < 0 {
			return -1, -1
		}
		i += from
		rest := text[i+len(fenceMarker):]
		trimmed := strings.TrimLeft(rest, " ")
		if strings.HasPrefix(trimmed, fenceTag) {
			return i, -1
		}
		if len(trimmed) < len(fenceTag) && !strings.Contains(trimmed, "\n") &&
			strings.HasPrefix(fenceTag, trimmed) {
			return -1, i
		}
		from = i + len(fenceMarker)
	}
}

// markerTail returns the length in bytes of the longest suffix of text that
// is a proper prefix of one of the leak markers.
func markerTail(text string) int {
	max := len(callMarker)
	if len(text) < max {
		max = len(text)
	}
	for n := max; n > 0; n-- {
		tail := text[len(text)-n:]
		if strings.HasPrefix(callMarker, tail) || strings.HasPrefix(fenceMarker+fenceTag, tail) {
			return n
		}
	}
	return 0
}

// callEnd finds the end of a default_api.Name(...) expression, honouring
// string literals and nested parentheses. Returns false while incomplete.
func callEnd(buf []rune) (int, bool) {
	depth := 0
	var quote rune
	seenOpen := false
	for i, r := range buf {
		if quote != 0 {
			if r == quote {
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'':
			quote = r
		case '(':
			depth++
			seenOpen = true
		case ')':
			depth--
			if seenOpen && depth == 0 {
				return i + 1, true
			}
		case '\n':
			if !seenOpen {
				// Bare "default_api.foo" with no call: suppress the line.
				return i, true
			}
		}
	}
	return 0, false
}

// consumeLeak records a suppressed fence or pseudo-call and recovers a tool
// call from it when the text parses.
func (s *Sanitizer) consumeLeak(text string, fence bool) {
	if fence {
		s.stats.FencesSuppressed++
	} else {
		s.stats.CallsSuppressed++
	}
	if call, ok := parseCall(text); ok {
		s.calls = append(s.calls, call)
	}
}

// release filters glyphs and appends to the window, flushing on sentence
// boundaries or when the window fills.
func (s *Sanitizer) release(text string) {
	for _, r := range text {
		if !allowedRune(r) {
			s.stats.GlyphsDropped++
			continue
		}
		s.window = append(s.window, r)
		if isTerminator(r) {
			s.flushWindow(len(s.window))
		} else if len(s.window) >= windowSize {
			s.flushWindow(len(s.window))
		}
	}
}

func (s *Sanitizer) flushWindow(n int) {
	if n == 0 {
		return
	}
	out := string(s.window[:n])
	s.window = s.window[n:]
	if s.emit != nil {
		s.emit(out)
	}
}

func isTerminator(r rune) bool {
	switch r {
	case '。', '！', '？', '!', '?', '\n':
		return true
	}
	return false
}

// allowedRune reports whether a glyph may reach the client: ASCII, CJK
// unified (plus extension A), CJK symbols and punctuation, fullwidth forms,
// and general punctuation. Everything else (Cyrillic, Arabic, Thai, ...) is
// dropped.
func allowedRune(r rune) bool {
	switch {
	case r < 0x80:
		return true
	case r >= 0x4E00 && r <= 0x9FFF: // CJK unified
		return true
	case r >= 0x3400 && r <= 0x4DBF: // CJK extension A
		return true
	case r >= 0x3000 && r <= 0x303F: // CJK symbols and punctuation
		return true
	case r >= 0xFF00 && r <= 0xFFEF: // fullwidth forms
		return true
	case r >= 0x2000 && r <= 0x206F: // general punctuation
		return true
	}
	return false
}
