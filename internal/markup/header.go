package markup

import (
	"regexp"
	"strings"
)

const canliiMark = "(CanLII)"

// neutralCitationRe recognizes a neutral citation inside a heading line,
// e.g. "2024 SKCA 79" or "2012 SCC 13"
var neutralCitationRe = regexp.MustCompile(`\b\d{4}\s+[A-Z][A-Za-z]{1,7}\s+\d+\b`)

// parseHeader fills the structured header fields from the raw header text
func parseHeader(h *Header) {
	if strings.TrimSpace(h.Text) == "" {
		return
	}

	h.Citation = headerCitation(h.Text)

	blocks := blockSplitRe.Split(h.Text, -1)
	section := ""
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		lines := strings.Split(block, "\n")
		first := cleanHeaderLine(lines[0])

		if kind := sectionKind(first); kind != "" {
			section = kind
			if len(lines) > 1 {
				appendSection(h, section, lines[1:])
				section = ""
			}
			continue
		}

		if low := strings.ToLower(first); strings.HasPrefix(low, "keywords:") || strings.HasPrefix(low, "mots-clés :") || strings.HasPrefix(low, "mots-clés:") {
			rest := first[strings.Index(first, ":")+1:]
			h.Keywords = append(h.Keywords, splitKeywords(rest)...)
			if len(lines) > 1 {
				h.Keywords = append(h.Keywords, splitKeywords(strings.Join(lines[1:], " "))...)
			}
			section = ""
			continue
		}

		if section != "" {
			appendSection(h, section, lines)
			section = ""
		}
	}
}

// headerCitation pulls the citation line out of the header: the portion
// of the heading before the "(CanLII)" mark
func headerCitation(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, canliiMark) {
			continue
		}
		cite := line[:strings.Index(line, canliiMark)]
		cite = cleanHeaderLine(cite)
		cite = strings.TrimSuffix(strings.TrimSpace(cite), ",")
		if cite != "" {
			return cite
		}
	}

	// No CanLII mark: fall back to a heading that looks like a citation
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			continue
		}
		cleaned := cleanHeaderLine(trimmed)
		if neutralCitationRe.MatchString(cleaned) {
			return cleaned
		}
	}
	return ""
}

// sectionKind classifies a header section heading
func sectionKind(line string) string {
	low := strings.ToLower(line)
	switch {
	case strings.Contains(low, "legislation cited") || strings.Contains(low, "législation citée"):
		return "legislation"
	case strings.Contains(low, "decisions cited") || strings.Contains(low, "cases cited") || strings.Contains(low, "décisions citées"):
		return "decisions"
	case low == "summary" || low == "headnote" || strings.HasPrefix(low, "summary:"):
		return "summary"
	default:
		return ""
	}
}

func appendSection(h *Header, section string, lines []string) {
	switch section {
	case "legislation":
		h.Legislation = append(h.Legislation, cleanItems(lines)...)
	case "decisions":
		h.Decisions = append(h.Decisions, cleanItems(lines)...)
	case "summary":
		text := strings.TrimSpace(strings.Join(lines, "\n"))
		if h.Summary == "" {
			h.Summary = text
		} else {
			h.Summary = h.Summary + "\n" + text
		}
	}
}

// cleanItems turns section lines into list items, dropping bullets and
// markdown emphasis
func cleanItems(lines []string) []string {
	var items []string
	for _, line := range lines {
		item := cleanHeaderLine(line)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// cleanHeaderLine strips markdown decoration from a header line
func cleanHeaderLine(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimLeft(s, "#>-* \t")
	s = strings.ReplaceAll(s, "**", "")
	// drop trailing markdown links: "..., <https://canlii.ca/t/abc>"
	if idx := strings.Index(s, "<http"); idx >= 0 {
		s = strings.TrimRight(strings.TrimSpace(s[:idx]), ",")
	}
	return strings.TrimSpace(s)
}

func splitKeywords(s string) []string {
	var out []string
	for _, sep := range []string{"—", ";", "|"} {
		if strings.Contains(s, sep) {
			for _, part := range strings.Split(s, sep) {
				if kw := strings.TrimSpace(cleanHeaderLine(part)); kw != "" {
					out = append(out, kw)
				}
			}
			return out
		}
	}
	if kw := strings.TrimSpace(cleanHeaderLine(s)); kw != "" {
		out = append(out, kw)
	}
	return out
}
