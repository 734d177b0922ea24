// Package markup turns judicial-decision HTML into clean structural
// units: a header, numbered body paragraphs, and citation metadata.
// Everything downstream works against a Document, never against raw HTML.
package markup

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
)

var (
	excessiveLinesRe = regexp.MustCompile(`\n{4,}`)
	blockSplitRe     = regexp.MustCompile(`\n\s*\n+`)

	// loadingMarkerRe matches the viewer's paragraph-marker loading line,
	// which leaks into the text in both languages
	loadingMarkerRe = regexp.MustCompile(`(?i)(loading paragraph markers|chargement des marqueurs de paragraphes?)`)
)

// chrome we strip before conversion; judgments keep only the decision body
var (
	strippedTags = []string{
		"nav", "header", "footer", "aside", "script", "style", "noscript",
		"iframe", "object", "embed", "form", "input", "button", "svg",
	}
	strippedClasses = []string{
		"nav", "navbar", "navigation", "sidebar", "menu", "toc",
		"footer", "header", "ad", "advertisement", "social", "share",
		"breadcrumb", "print", "tools",
	}
)

// Normalizer converts judgment HTML into Documents
type Normalizer struct {
	converter *md.Converter
}

// NewNormalizer creates a Normalizer
func NewNormalizer() *Normalizer {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Normalizer{converter: converter}
}

// Normalize runs the full conversion:
// 1. Strip page chrome from the DOM
// 2. Convert the remaining HTML to markdown
// 3. Split the markdown at the first numbered paragraph
// 4. Parse the header into citation metadata
//
// Empty input yields a Document with Empty set, not an error.
func (n *Normalizer) Normalize(rawHTML string) (*Document, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return &Document{Empty: true}, nil
	}

	title, cleaned, err := extractContent(rawHTML)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	markdown, err := n.converter.ConvertString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("convert markup: %w", err)
	}
	markdown = cleanMarkdown(markdown)

	if markdown == "" {
		return &Document{Empty: true}, nil
	}

	doc := segment(markdown)
	doc.Title = title
	doc.Markdown = markdown
	if doc.Title == "" {
		doc.Title = firstHeading(markdown)
	}
	parseHeader(&doc.Header)

	if len(doc.Paragraphs) == 0 && strings.TrimSpace(doc.Header.Text) == "" {
		doc.Empty = true
	}
	return doc, nil
}

// extractContent strips chrome from the DOM and returns the page title
// plus the HTML of the main content area
func extractContent(rawHTML string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", "", err
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	// Prefer an explicit main-content region
	for _, sel := range []string{"main", "article", "[role=main]"} {
		if region := doc.Find(sel); region.Length() > 0 {
			inner := region.First()
			inner.Find(strings.Join(strippedTags, ", ")).Remove()
			html, err := goquery.OuterHtml(inner)
			if err != nil {
				return "", "", err
			}
			return title, html, nil
		}
	}

	doc.Find(strings.Join(strippedTags, ", ")).Remove()

	classSel := make([]string, len(strippedClasses))
	for i, c := range strippedClasses {
		classSel[i] = "." + c
	}
	doc.Find(strings.Join(classSel, ", ")).Remove()

	body := doc.Find("body")
	if body.Length() == 0 {
		html, err := doc.Html()
		return title, html, err
	}
	html, err := goquery.OuterHtml(body.First())
	return title, html, err
}

// markdownUnescaper undoes the converter's escaping of literal
// punctuation. Document text is the canonical form quotes are checked
// against, so it must read the way the decision prints.
var markdownUnescaper = strings.NewReplacer(
	`\[`, "[", `\]`, "]", `\_`, "_", `\*`, "*", `\.`, ".", `\-`, "-",
)

// cleanMarkdown collapses excess blank lines, trims line endings, drops
// viewer artifacts, and unescapes literal punctuation
func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if loadingMarkerRe.MatchString(line) {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	content = strings.Join(kept, "\n")
	content = markdownUnescaper.Replace(content)
	return strings.TrimSpace(content)
}

// firstHeading returns the first markdown H1 text
func firstHeading(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// segment splits normalized markdown into header and numbered paragraphs.
// The body starts at the first block printed as paragraph [1]; numbering
// must then run sequentially, so bracketed years in citations ("[2024] 1
// S.C.R.") never start a paragraph. Documents with no printed numbering
// get sequential synthetic numbers and are flagged.
func segment(markdown string) *Document {
	doc := &Document{}

	var blocks []string
	for _, block := range blockSplitRe.Split(markdown, -1) {
		block = strings.TrimSpace(block)
		// bare anchor markers separate paragraphs but carry no text
		if block == "" || block == "__" {
			continue
		}
		blocks = append(blocks, block)
	}

	var headerBlocks []string
	numbering := false
	next := 1

	for _, block := range blocks {
		num, text, ok := splitNumbered(block)
		switch {
		case ok && num == next:
			doc.Paragraphs = append(doc.Paragraphs, Paragraph{Number: num, Text: text})
			numbering = true
			next++
		case numbering:
			// continuation of the previous paragraph (quoted passages,
			// indented conditions)
			last := &doc.Paragraphs[len(doc.Paragraphs)-1]
			last.Text = last.Text + "\n\n" + block
		default:
			headerBlocks = append(headerBlocks, block)
		}
	}

	// No printed numbering anywhere: keep heading blocks as the header
	// and number the rest in order
	if !numbering && len(headerBlocks) > 0 {
		var body []string
		headerEnd := 0
		for i, block := range headerBlocks {
			if strings.HasPrefix(block, "#") && len(body) == 0 {
				headerEnd = i + 1
				continue
			}
			body = append(body, block)
		}
		if len(body) > 0 {
			headerBlocks = headerBlocks[:headerEnd]
			for i, block := range body {
				doc.Paragraphs = append(doc.Paragraphs, Paragraph{Number: i + 1, Text: block})
			}
			doc.Stats.SyntheticNumbering = true
		}
	}

	doc.Header.Text = strings.Join(headerBlocks, "\n\n")
	doc.Stats.ParagraphCount = len(doc.Paragraphs)
	return doc
}

// splitNumbered reads a printed paragraph number off the front of a
// block. The closing bracket must sit within the first few characters,
// matching how decisions print "[12] The accused..."
func splitNumbered(block string) (int, string, bool) {
	s := strings.TrimLeft(block, "*_ \t")
	if !strings.HasPrefix(s, "[") {
		return 0, "", false
	}

	head := s
	if len(head) > 10 {
		head = head[:10]
	}
	idx := strings.Index(head, "]")
	if idx < 0 {
		return 0, "", false
	}

	num, err := strconv.Atoi(strings.TrimSpace(s[1:idx]))
	if err != nil || num <= 0 {
		return 0, "", false
	}

	text := strings.TrimSpace(strings.TrimLeft(s[idx+1:], "*_ \t"))
	if text == "" {
		return 0, "", false
	}
	return num, text, true
}
