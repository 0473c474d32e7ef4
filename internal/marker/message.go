package marker

import (
	"sort"
	"strings"
)

type segmentKind int

const (
	segLiteral segmentKind = iota
	segProvider
	segWebhook
	// segGap is a transient placeholder left where a marker was removed;
	// normalize folds the surrounding whitespace and discards it.
	segGap
)

type segment struct {
	kind    segmentKind
	text    string // exact source text; for markers, includes the leading '@'
	service string // provider markers only: the service key
}

// Message is an alert message decomposed into an ordered list of literal and
// marker segments. Edits operate on segments and serialize back to a string,
// so removing a marker never needs a whitespace-collapsing pass over the
// whole text.
type Message struct {
	provider Provider
	segments []segment
}

// Parse decomposes message into segments, recognizing provider markers for
// the given provider and all webhook markers.
func Parse(message string, p Provider) *Message {
	type span struct {
		start, end int
		kind       segmentKind
		service    string
	}
	var spans []span
	for _, idx := range webhookPattern.FindAllStringIndex(message, -1) {
		spans = append(spans, span{start: idx[0], end: idx[1], kind: segWebhook})
	}
	if re, ok := providerPatterns[p]; ok {
		for _, idx := range re.FindAllStringSubmatchIndex(message, -1) {
			spans = append(spans, span{
				start:   idx[0],
				end:     idx[1],
				kind:    segProvider,
				service: message[idx[2]:idx[3]],
			})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	m := &Message{provider: p}
	pos := 0
	for _, s := range spans {
		if s.start > pos {
			m.segments = append(m.segments, segment{kind: segLiteral, text: message[pos:s.start]})
		}
		m.segments = append(m.segments, segment{kind: s.kind, text: message[s.start:s.end], service: s.service})
		pos = s.end
	}
	if pos < len(message) {
		m.segments = append(m.segments, segment{kind: segLiteral, text: message[pos:]})
	}
	return m
}

// ProviderServices returns the service keys of the message's provider
// markers in order, duplicates preserved.
func (m *Message) ProviderServices() []string {
	var services []string
	for _, s := range m.segments {
		if s.kind == segProvider {
			services = append(services, s.service)
		}
	}
	return services
}

// WebhookMarkers returns the exact webhook marker substrings in order.
func (m *Message) WebhookMarkers() []string {
	var markers []string
	for _, s := range m.segments {
		if s.kind == segWebhook {
			markers = append(markers, s.text)
		}
	}
	return markers
}

// StripWebhookMarkers removes every webhook marker from the message,
// folding the whitespace each removal leaves behind.
func (m *Message) StripWebhookMarkers() {
	m.strip(segWebhook)
}

// StripProviderMarkers removes every provider marker from the message,
// folding the whitespace each removal leaves behind.
func (m *Message) StripProviderMarkers() {
	m.strip(segProvider)
}

// AppendWebhook appends the canonical marker for name to the end of the
// message, separated by a single space when the message is non-empty.
func (m *Message) AppendWebhook(name string) {
	lit := WebhookMarker(name)
	if len(m.segments) > 0 {
		last := &m.segments[len(m.segments)-1]
		if last.kind == segLiteral {
			last.text = strings.TrimRight(last.text, " \t")
			if last.text == "" {
				m.segments = m.segments[:len(m.segments)-1]
			}
		}
		if len(m.segments) > 0 {
			m.segments = append(m.segments, segment{kind: segLiteral, text: " "})
		}
	}
	m.segments = append(m.segments, segment{kind: segWebhook, text: lit})
}

// String serializes the segments back to the message text.
func (m *Message) String() string {
	var b strings.Builder
	for _, s := range m.segments {
		b.WriteString(s.text)
	}
	return b.String()
}

func (m *Message) strip(kind segmentKind) {
	marked := make([]segment, 0, len(m.segments))
	for _, s := range m.segments {
		if s.kind == kind {
			marked = append(marked, segment{kind: segGap})
			continue
		}
		marked = append(marked, s)
	}
	m.segments = normalize(marked)
}

// normalize resolves gap placeholders: whitespace adjoining a removed marker
// collapses, and surviving neighbors are rejoined with a single space.
func normalize(segs []segment) []segment {
	out := make([]segment, 0, len(segs))
	pendingGap := false
	for _, s := range segs {
		switch s.kind {
		case segGap:
			if n := len(out); n > 0 && out[n-1].kind == segLiteral {
				out[n-1].text = strings.TrimRight(out[n-1].text, " \t")
				if out[n-1].text == "" {
					out = out[:n-1]
				}
			}
			pendingGap = true
		case segLiteral:
			text := s.text
			if pendingGap {
				text = strings.TrimLeft(text, " \t")
				if text == "" {
					continue
				}
				if len(out) > 0 {
					text = " " + text
				}
				pendingGap = false
			}
			if n := len(out); n > 0 && out[n-1].kind == segLiteral {
				out[n-1].text += text
			} else {
				out = append(out, segment{kind: segLiteral, text: text})
			}
		default:
			if pendingGap && len(out) > 0 {
				out = append(out, segment{kind: segLiteral, text: " "})
			}
			pendingGap = false
			out = append(out, s)
		}
	}
	return out
}
