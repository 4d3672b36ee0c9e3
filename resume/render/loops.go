package render

import (
	"encoding/xml"
	"regexp"
	"sort"
	"strings"

	"voice-resume-backend/resume/model"
)

var (
	// loose matches placeholders written with inner spaces, e.g. "{{ FULL_NAME }}".
	loosePlaceholderPattern = regexp.MustCompile(`{{\s*([#/]?)\s*([A-Za-z0-9_]+)\s*}}`)
	placeholderPattern      = regexp.MustCompile(`{{[#/]?[A-Za-z0-9_]+}}`)
	loopStartPattern        = regexp.MustCompile(`{{#([A-Za-z0-9_]+)}}`)
)

func openTag(name string) string     { return "{{#" + name + "}}" }
func closeTag(name string) string    { return "{{/" + name + "}}" }
func placeholder(name string) string { return "{{" + name + "}}" }

func paragraphText(p *xmlNode) string {
	var b strings.Builder
	for _, node := range collectTextElements(p) {
		b.WriteString(nodeText(node))
	}
	return b.String()
}

// nodeTextContent is the text a loop tag is searched in: paragraphs and table
// rows count, other block elements do not.
func nodeTextContent(node *xmlNode) string {
	switch {
	case node == nil:
		return ""
	case node.IsText:
		return node.Text
	case isElement(node, "p"), isElement(node, "tr"):
		return paragraphText(node)
	}
	return ""
}

// collectTextElements returns the <w:t> nodes of node, leaving out text boxes
// since their paragraphs are visited on their own.
func collectTextElements(node *xmlNode) []*xmlNode {
	var out []*xmlNode
	walkXML(node, func(n *xmlNode) bool {
		if n != node && isElement(n, "txbxContent") {
			return false
		}
		if isElement(n, "t") {
			out = append(out, n)
		}
		return true
	})
	return out
}

func nodeText(node *xmlNode) string {
	if node.IsText {
		return node.Text
	}
	var b strings.Builder
	for _, child := range node.Children {
		if child.IsText {
			b.WriteString(child.Text)
		}
	}
	return b.String()
}

func setNodeText(node *xmlNode, text string) {
	node.Children = node.Children[:0]
	if text != "" {
		node.Children = append(node.Children, &xmlNode{IsText: true, Text: text})
	}
}

// preserveSpace marks a <w:t> so Word keeps leading and trailing blanks.
func preserveSpace(t *xmlNode) {
	for _, attr := range t.Attr {
		if attr.Name.Local == "space" || attr.Name.Local == "xml:space" {
			return
		}
	}
	t.Attr = append(t.Attr, xml.Attr{Name: xml.Name{Local: "xml:space"}, Value: "preserve"})
}

// rewriteParagraph applies fn to the paragraph text. Each run is tried on its
// own first so formatting survives; when a match spans runs the whole text
// moves into the first run.
func rewriteParagraph(p *xmlNode, fn func(string) string) {
	textNodes := collectTextElements(p)
	if len(textNodes) == 0 {
		return
	}
	for _, node := range textNodes {
		text := nodeText(node)
		if updated := fn(text); updated != text {
			setNodeText(node, updated)
		}
	}

	var b strings.Builder
	for _, node := range textNodes {
		b.WriteString(nodeText(node))
	}
	combined := b.String()
	updated := fn(combined)
	if updated == combined {
		return
	}
	setNodeText(textNodes[0], updated)
	preserveSpace(textNodes[0])
	for _, node := range textNodes[1:] {
		setNodeText(node, "")
	}
}

func replaceTokensInText(text string, replacements map[string]string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	for tok, value := range replacements {
		text = strings.ReplaceAll(text, tok, value)
	}
	return text
}

func replaceTokensInParagraph(p *xmlNode, replacements map[string]string) {
	rewriteParagraph(p, func(s string) string { return replaceTokensInText(s, replacements) })
}

// replaceTokensInNode substitutes tokens in every paragraph under root.
func replaceTokensInNode(root *xmlNode, replacements map[string]string) {
	walkXML(root, func(n *xmlNode) bool {
		if isElement(n, "p") {
			replaceTokensInParagraph(n, replacements)
		}
		return true
	})
}

// normalizePlaceholders rewrites "{{ NAME }}" style tags to "{{NAME}}".
func normalizePlaceholders(root *xmlNode) {
	walkXML(root, func(n *xmlNode) bool {
		if !isElement(n, "p") {
			return true
		}
		if strings.Contains(paragraphText(n), "{{") {
			rewriteParagraph(n, func(s string) string {
				return loosePlaceholderPattern.ReplaceAllString(s, "{{$1$2}}")
			})
		}
		return true
	})
}

// clearPlaceholders blanks any placeholder that had no value, the way an
// undefined template variable renders empty.
func clearPlaceholders(root *xmlNode) {
	walkXML(root, func(n *xmlNode) bool {
		if !isElement(n, "p") {
			return true
		}
		if strings.Contains(paragraphText(n), "{{") {
			rewriteParagraph(n, func(s string) string {
				return placeholderPattern.ReplaceAllString(s, "")
			})
		}
		return true
	})
}

// loopNames lists the loop blocks opened anywhere in the document, sorted.
func loopNames(root *xmlNode) []string {
	seen := make(map[string]struct{})
	walkXML(root, func(n *xmlNode) bool {
		if !isElement(n, "p") {
			return true
		}
		for _, match := range loopStartPattern.FindAllStringSubmatch(paragraphText(n), -1) {
			seen[match[1]] = struct{}{}
		}
		return true
	})
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func recordReplacements(rec model.Record) map[string]string {
	out := make(map[string]string, len(rec))
	for k, v := range rec {
		out[placeholder(k)] = v
	}
	return out
}

// expandLoops expands every {{#NAME}}...{{/NAME}} block. Blocks whose list is
// missing from lists render zero times.
func expandLoops(root *xmlNode, lists map[string][]model.Record) error {
	for _, name := range loopNames(root) {
		records := lists[name]
		expandInlineLoops(root, name, records)
		if err := expandBlockLoops(root, name, records); err != nil {
			return err
		}
	}
	return nil
}

// expandInlineLoops handles blocks that open and close inside one paragraph,
// e.g. "{{#EXPERTISE}}{{SKILL}}, {{/EXPERTISE}}".
func expandInlineLoops(root *xmlNode, name string, records []model.Record) {
	open, end := openTag(name), closeTag(name)
	walkXML(root, func(n *xmlNode) bool {
		if !isElement(n, "p") {
			return true
		}
		text := paragraphText(n)
		start := strings.Index(text, open)
		if start == -1 || !strings.Contains(text[start:], end) {
			return true
		}
		rewriteParagraph(n, func(s string) string {
			for {
				i := strings.Index(s, open)
				if i == -1 {
					return s
				}
				j := strings.Index(s[i:], end)
				if j == -1 {
					return s
				}
				body := s[i+len(open) : i+j]
				var b strings.Builder
				for _, rec := range records {
					b.WriteString(replaceTokensInText(body, recordReplacements(rec)))
				}
				s = s[:i] + b.String() + s[i+j+len(end):]
			}
		})
		return true
	})
}

// expandBlockLoops repeats the siblings between the paragraph (or table row)
// holding the start tag and the one holding the end tag, once per record.
func expandBlockLoops(root *xmlNode, name string, records []model.Record) error {
	var err error
	walkXML(root, func(n *xmlNode) bool {
		if err != nil {
			return false
		}
		if n.IsText {
			return true
		}
		for {
			expanded, loopErr := expandLoopInContainer(n, name, records)
			if loopErr != nil {
				err = loopErr
				return false
			}
			if !expanded {
				break
			}
		}
		return true
	})
	return err
}

func expandLoopInContainer(container *xmlNode, name string, records []model.Record) (bool, error) {
	open, end := openTag(name), closeTag(name)

	startIdx, endIdx := -1, -1
	for idx, child := range container.Children {
		text := nodeTextContent(child)
		if startIdx == -1 {
			if strings.Contains(text, open) {
				startIdx = idx
			}
			continue
		}
		if strings.Contains(text, end) {
			endIdx = idx
			break
		}
	}
	if startIdx == -1 || endIdx == -1 {
		return false, nil
	}

	startKeep := removeTokensFromNode(container.Children[startIdx], open)
	endKeep := removeTokensFromNode(container.Children[endIdx], end)

	template := container.Children[startIdx+1 : endIdx]
	rendered := make([]*xmlNode, 0, len(records)*len(template))
	for _, rec := range records {
		nodes := cloneNodes(template)
		tmp := &xmlNode{Name: xml.Name{Local: "fragment"}, Children: nodes}
		replaceTokensInNode(tmp, recordReplacements(rec))
		rendered = append(rendered, tmp.Children...)
	}

	children := make([]*xmlNode, 0, len(container.Children)-len(template)+len(rendered))
	children = append(children, container.Children[:startIdx]...)
	if startKeep != nil {
		children = append(children, startKeep)
	}
	children = append(children, rendered...)
	if endKeep != nil {
		children = append(children, endKeep)
	}
	children = append(children, container.Children[endIdx+1:]...)
	container.Children = children
	return true, nil
}

// removeTokensFromNode strips tags from a paragraph or row and drops it when
// nothing but whitespace is left.
func removeTokensFromNode(node *xmlNode, tokens ...string) *xmlNode {
	replacements := make(map[string]string, len(tokens))
	for _, tok := range tokens {
		replacements[tok] = ""
	}
	if node.IsText {
		node.Text = replaceTokensInText(node.Text, replacements)
		if strings.TrimSpace(node.Text) == "" {
			return nil
		}
		return node
	}
	replaceTokensInNode(node, replacements)
	if isElement(node, "p") || isElement(node, "tr") {
		if strings.TrimSpace(paragraphText(node)) == "" && !hasDrawing(node) {
			return nil
		}
	}
	return node
}

func hasDrawing(node *xmlNode) bool {
	found := false
	walkXML(node, func(n *xmlNode) bool {
		if found {
			return false
		}
		if isElement(n, "drawing") {
			found = true
			return false
		}
		return true
	})
	return found
}
