package chunker

import (
	"strings"
)

const (
	DefaultMaxChars     = 1500
	DefaultOverlapWords = 50
)

type Chunk struct {
	SectionName string `json:"sectionName"`
	Text        string `json:"text"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
}

type Options struct {
	// MaxChars bounds the packed paragraphs of a chunk. The overlap seed is
	// carried on top of it.
	MaxChars int
}

type Chunker struct {
	maxChars int
}

func New(opts Options) *Chunker {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	return &Chunker{maxChars: opts.MaxChars}
}

// Chunk splits body at level 1-3 headings and packs each section's paragraphs
// into chunks. Output depends only on the inputs.
func (c *Chunker) Chunk(body string, overlapWords int) []Chunk {
	if overlapWords < 0 {
		overlapWords = 0
	}
	var out []Chunk
	for _, sec := range splitSections(body) {
		for _, text := range c.pack(paragraphs(sec.body), overlapWords) {
			out = append(out, Chunk{
				SectionName: sec.name,
				Text:        text,
				ChunkIndex:  len(out),
			})
		}
	}
	for i := range out {
		out[i].TotalChunks = len(out)
	}
	return out
}

type section struct {
	name string
	body string
}

func splitSections(body string) []section {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	var (
		out  []section
		cur  section
		buf   []string
		seen  bool
		fence string
	)
	flush := func() {
		if seen || len(buf) > 0 {
			cur.body = strings.Join(buf, "\n")
			out = append(out, cur)
		}
		buf = buf[:0]
	}
	for _, line := range strings.Split(body, "\n") {
		if marker := fenceMarker(line); marker != "" {
			switch {
			case fence == "":
				fence = marker
			case strings.HasPrefix(marker, fence):
				fence = ""
			}
		}
		if fence != "" {
			buf = append(buf, line)
			continue
		}
		if name, ok := headingName(line); ok {
			flush()
			cur = section{name: name}
			seen = true
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return out
}

// fenceMarker returns the run of backticks or tildes opening line when it is a
// code fence delimiter.
func fenceMarker(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 || len(trimmed) < 3 {
		return ""
	}
	ch := trimmed[0]
	if ch != '`' && ch != '~' {
		return ""
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == ch {
		n++
	}
	if n < 3 {
		return ""
	}
	return trimmed[:n]
}

// headingName reports whether line is an ATX heading of level 1 to 3.
func headingName(line string) (string, bool) {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	if level == 0 || level > 3 || level >= len(line) || line[level] != ' ' {
		return "", false
	}
	name := strings.TrimSpace(line[level:])
	name = strings.TrimSpace(strings.TrimRight(name, "#"))
	return name, true
}

func paragraphs(body string) []string {
	var (
		out []string
		cur []string
	)
	flush := func() {
		if p := strings.TrimSpace(strings.Join(cur, "\n")); p != "" {
			out = append(out, p)
		}
		cur = cur[:0]
	}
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return out
}

func (c *Chunker) pack(paras []string, overlapWords int) []string {
	var (
		out []string
		cur string
	)
	for _, para := range paras {
		for _, p := range c.splitOversize(para) {
			switch {
			case cur == "":
				cur = p
			case len(cur)+2+len(p) <= c.maxChars:
				cur += "\n\n" + p
			default:
				out = append(out, cur)
				if seed := lastWords(cur, overlapWords); seed != "" {
					cur = seed + "\n\n" + p
				} else {
					cur = p
				}
			}
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

// splitOversize breaks a paragraph longer than the budget at word boundaries.
// A single word longer than the budget is kept whole.
func (c *Chunker) splitOversize(p string) []string {
	if len(p) <= c.maxChars {
		return []string{p}
	}
	var (
		out []string
		b   strings.Builder
	)
	for _, w := range strings.Fields(p) {
		if b.Len() > 0 && b.Len()+1+len(w) > c.maxChars {
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

func lastWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
