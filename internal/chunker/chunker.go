// Package chunker cuts assistant narratives into passages for message search.
package chunker

import "strings"

// DefaultSize is the passage size, in bytes, used when none is given.
const DefaultSize = 480

// Passage is a slice of a message with its 1-based line range.
type Passage struct {
	Seq       int    `json:"seq"`
	Text      string `json:"text"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

type span struct {
	text       string
	start, end int
	heading    bool
}

// Passages splits text on blank lines and markdown headings, then packs
// neighbouring paragraphs into passages of at most size bytes. A heading
// always opens a new passage. Paragraphs longer than size are cut on line
// boundaries, and single long lines on word boundaries; a word longer than
// size is kept whole.
func Passages(text string, size int) []Passage {
	if size <= 0 {
		size = DefaultSize
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lines := strings.Split(text, "\n")

	var spans []span
	start := -1
	flush := func(end int) {
		if start >= 0 {
			spans = append(spans, paragraph(lines, start, end, size)...)
			start = -1
		}
	}
	for i, l := range lines {
		trimmed := strings.TrimSpace(l)
		switch {
		case trimmed == "":
			flush(i - 1)
		case strings.HasPrefix(trimmed, "#"):
			flush(i - 1)
			start = i
		case start < 0:
			start = i
		}
	}
	flush(len(lines) - 1)

	return pack(spans, size)
}

// paragraph turns lines[from..to] into one or more spans no longer than size.
func paragraph(lines []string, from, to, size int) []span {
	heading := strings.HasPrefix(strings.TrimSpace(lines[from]), "#")
	text := strings.TrimSpace(strings.Join(lines[from:to+1], "\n"))
	if len(text) <= size {
		return []span{{text: text, start: from + 1, end: to + 1, heading: heading}}
	}

	var out []span
	var cur []string
	curStart := from
	curLen := 0
	emit := func(end int) {
		if t := strings.TrimSpace(strings.Join(cur, "\n")); t != "" {
			out = append(out, span{text: t, start: curStart + 1, end: end + 1})
		}
		cur = nil
		curLen = 0
	}

	for i := from; i <= to; i++ {
		line := strings.TrimSpace(lines[i])
		if len(line) > size {
			emit(i - 1)
			for _, piece := range words(line, size) {
				out = append(out, span{text: piece, start: i + 1, end: i + 1})
			}
			continue
		}
		if curLen > 0 && curLen+1+len(line) > size {
			emit(i - 1)
		}
		if curLen == 0 {
			curStart = i
		} else {
			curLen++
		}
		cur = append(cur, line)
		curLen += len(line)
	}
	emit(to)

	if len(out) > 0 {
		out[0].heading = heading
	}
	return out
}

func words(line string, size int) []string {
	var out []string
	var b strings.Builder
	for _, w := range strings.Fields(line) {
		if b.Len() > 0 && b.Len()+1+len(w) > size {
			out = append(out, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

func pack(spans []span, size int) []Passage {
	var out []Passage
	for _, s := range spans {
		if n := len(out); n > 0 && !s.heading {
			last := &out[n-1]
			if len(last.Text)+2+len(s.text) <= size {
				last.Text += "\n\n" + s.text
				last.EndLine = s.end
				continue
			}
		}
		out = append(out, Passage{Seq: len(out), Text: s.text, StartLine: s.start, EndLine: s.end})
	}
	return out
}
