package markup

import "strings"

// Paragraph is one numbered body paragraph of a judgment
type Paragraph struct {
	Number int    `json:"number"` // Paragraph number as printed in the decision
	Text   string `json:"text"`
}

// Header holds the front matter of a judgment: everything before the
// first numbered paragraph
type Header struct {
	Text        string   `json:"text,omitempty"`        // Raw header markdown
	Citation    string   `json:"citation,omitempty"`    // Citation line, e.g. "R. v. Sutherland, 2024 SKCA 79"
	Legislation []string `json:"legislation,omitempty"` // Legislation cited block
	Decisions   []string `json:"decisions,omitempty"`   // Decisions cited block
	Keywords    []string `json:"keywords,omitempty"`
	Summary     string   `json:"summary,omitempty"` // Headnote when present
}

// Stats describes how the document segmented
type Stats struct {
	ParagraphCount     int  `json:"paragraph_count"`
	SyntheticNumbering bool `json:"synthetic_numbering,omitempty"` // Numbers assigned, not printed
}

// Document is a judgment normalized into structural units
type Document struct {
	Title      string      `json:"title,omitempty"` // HTML title or first heading
	Markdown   string      `json:"-"`               // Full normalized markdown
	Header     Header      `json:"header"`
	Paragraphs []Paragraph `json:"paragraphs"`
	Stats      Stats       `json:"stats"`
	Empty      bool        `json:"empty,omitempty"` // Input had no usable text
}

// ParagraphByNumber returns the paragraph printed with the given number
func (d *Document) ParagraphByNumber(n int) (Paragraph, bool) {
	for _, p := range d.Paragraphs {
		if p.Number == n {
			return p, true
		}
	}
	return Paragraph{}, false
}

// FirstParagraphs returns up to k opening paragraphs
func (d *Document) FirstParagraphs(k int) []Paragraph {
	if k <= 0 || k > len(d.Paragraphs) {
		k = len(d.Paragraphs)
	}
	return d.Paragraphs[:k]
}

// BodyText joins every paragraph into one plain-text body
func (d *Document) BodyText() string {
	var sb strings.Builder
	for i, p := range d.Paragraphs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}
