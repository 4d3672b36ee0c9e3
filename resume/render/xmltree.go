package render

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"
)

const (
	wmlNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relNamespace = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// knownNamespaceURIs maps the prefixes the renderer may emit to their URIs.
var knownNamespaceURIs = map[string]string{
	"w":   wmlNamespace,
	"r":   relNamespace,
	"a":   "http://schemas.openxmlformats.org/drawingml/2006/main",
	"wp":  "http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing",
	"pic": "http://schemas.openxmlformats.org/drawingml/2006/picture",
	"mc":  "http://schemas.openxmlformats.org/markup-compatibility/2006",
	"w14": "http://schemas.microsoft.com/office/word/2010/wordml",
	"w15": "http://schemas.microsoft.com/office/word/2012/wordml",
}

type xmlNode struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*xmlNode
	Text     string
	IsText   bool
}

var xmlHeaderPattern = regexp.MustCompile(`(?s)^\s*(<\?xml[^>]+\?>)`)

// parseXMLDocument builds a node tree and returns the <?xml ...?> header separately.
func parseXMLDocument(xmlText string) (*xmlNode, string, error) {
	header := ""
	if match := xmlHeaderPattern.FindStringSubmatch(xmlText); len(match) > 0 {
		header = match[1]
		xmlText = strings.TrimSpace(xmlText[len(match[0]):])
	}

	decoder := xml.NewDecoder(strings.NewReader(xmlText))
	var stack []*xmlNode
	var root *xmlNode

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, "", err
		}

		switch t := token.(type) {
		case xml.StartElement:
			node := &xmlNode{Name: t.Name, Attr: t.Attr}
			if len(stack) == 0 {
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) == 0 || len(t) == 0 {
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, &xmlNode{IsText: true, Text: string(t)})
		}
	}

	if root == nil {
		return nil, "", errors.New("document has no root element")
	}
	return root, header, nil
}

// parseFragment parses markup that uses the prefixes declared in decls.
func parseFragment(fragment string, decls map[string]string) ([]*xmlNode, error) {
	prefixes := make([]string, 0, len(decls))
	for prefix := range decls {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	var b strings.Builder
	b.WriteString("<fragment")
	for _, prefix := range prefixes {
		writeXMLNS(&b, prefix, decls[prefix])
	}
	b.WriteString(">")
	b.WriteString(fragment)
	b.WriteString("</fragment>")

	root, _, err := parseXMLDocument(b.String())
	if err != nil {
		return nil, err
	}
	return root.Children, nil
}

// encodeXMLDocument writes the tree back out. The original root start tag is
// reused verbatim, extended with any namespace the rendered body now needs.
func encodeXMLDocument(header string, root *xmlNode, rootStart, rootEnd string) (string, error) {
	var buf bytes.Buffer
	if header != "" {
		buf.WriteString(header)
		if !strings.HasSuffix(header, "\n") {
			buf.WriteByte('\n')
		}
	}

	clone := cloneNode(root)
	normalizeXMLNSAttrs(clone)
	applyPrefixMap(clone, prefixMap(root))

	rootStart = ensureRootHasNamespaces(rootStart, requiredNamespaces(prefixesUsed(clone), root))
	buf.WriteString(rootStart)

	encoder := xml.NewEncoder(&buf)
	for _, child := range clone.Children {
		if err := encodeXMLNode(encoder, child); err != nil {
			return "", err
		}
	}
	if err := encoder.Flush(); err != nil {
		return "", err
	}

	buf.WriteString(rootEnd)
	return buf.String(), nil
}

func encodeXMLNode(encoder *xml.Encoder, node *xmlNode) error {
	if node.IsText {
		return encoder.EncodeToken(xml.CharData(node.Text))
	}
	start := xml.StartElement{Name: node.Name, Attr: node.Attr}
	if err := encoder.EncodeToken(start); err != nil {
		return err
	}
	for _, child := range node.Children {
		if err := encodeXMLNode(encoder, child); err != nil {
			return err
		}
	}
	return encoder.EncodeToken(start.End())
}

// walkXML visits node and its descendants in document order. Returning false
// from visit skips that node's children; siblings are still visited.
func walkXML(node *xmlNode, visit func(*xmlNode) bool) {
	if node == nil || !visit(node) {
		return
	}
	for _, child := range node.Children {
		walkXML(child, visit)
	}
}

// isElement reports whether node is the WordprocessingML element with the given local name.
func isElement(node *xmlNode, local string) bool {
	if node == nil || node.IsText || node.Name.Local != local {
		return false
	}
	return node.Name.Space == "" || node.Name.Space == wmlNamespace
}

func attrValue(node *xmlNode, local string) string {
	for _, attr := range node.Attr {
		if attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}

func cloneNode(node *xmlNode) *xmlNode {
	if node == nil {
		return nil
	}
	cloned := &xmlNode{
		Name:   node.Name,
		Attr:   append([]xml.Attr(nil), node.Attr...),
		Text:   node.Text,
		IsText: node.IsText,
	}
	if len(node.Children) > 0 {
		cloned.Children = cloneNodes(node.Children)
	}
	return cloned
}

func cloneNodes(nodes []*xmlNode) []*xmlNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*xmlNode, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, cloneNode(node))
	}
	return out
}

func isNamespaceAttr(name xml.Name) bool {
	return name.Space == "xmlns" || (name.Space == "" && (name.Local == "xmlns" || strings.HasPrefix(name.Local, "xmlns:")))
}

// namespaceDecls returns prefix -> URI for the declarations on node.
func namespaceDecls(node *xmlNode) map[string]string {
	out := make(map[string]string)
	if node == nil {
		return out
	}
	for _, attr := range node.Attr {
		switch {
		case attr.Name.Space == "xmlns":
			out[attr.Name.Local] = attr.Value
		case attr.Name.Space == "" && attr.Name.Local == "xmlns":
			out[""] = attr.Value
		case attr.Name.Space == "" && strings.HasPrefix(attr.Name.Local, "xmlns:"):
			out[strings.TrimPrefix(attr.Name.Local, "xmlns:")] = attr.Value
		}
	}
	return out
}

// prefixMap returns URI -> prefix for every declaration in the tree, then the
// known drawing namespaces the renderer can introduce.
func prefixMap(root *xmlNode) map[string]string {
	out := make(map[string]string)
	walkXML(root, func(n *xmlNode) bool {
		if n.IsText {
			return false
		}
		for prefix, uri := range namespaceDecls(n) {
			if _, ok := out[uri]; !ok {
				out[uri] = prefix
			}
		}
		return true
	})
	for prefix, uri := range knownNamespaceURIs {
		if _, ok := out[uri]; !ok {
			out[uri] = prefix
		}
	}
	return out
}

// applyPrefixMap rewrites namespaced names into literal "prefix:local" names so
// the encoder does not invent its own declarations.
func applyPrefixMap(node *xmlNode, prefixes map[string]string) {
	if node == nil || len(prefixes) == 0 {
		return
	}
	if !node.IsText {
		if prefix, ok := prefixes[node.Name.Space]; ok && prefix != "" {
			node.Name = xml.Name{Local: prefix + ":" + node.Name.Local}
		}
		for i, attr := range node.Attr {
			if isNamespaceAttr(attr.Name) {
				continue
			}
			if prefix, ok := prefixes[attr.Name.Space]; ok && prefix != "" {
				node.Attr[i].Name = xml.Name{Local: prefix + ":" + attr.Name.Local}
			}
		}
	}
	for _, child := range node.Children {
		applyPrefixMap(child, prefixes)
	}
}

func normalizeXMLNSAttrs(node *xmlNode) {
	if node == nil {
		return
	}
	for i, attr := range node.Attr {
		if attr.Name.Space != "xmlns" {
			continue
		}
		local := "xmlns"
		if attr.Name.Local != "" {
			local = "xmlns:" + attr.Name.Local
		}
		node.Attr[i].Name = xml.Name{Local: local}
	}
	for _, child := range node.Children {
		normalizeXMLNSAttrs(child)
	}
}

func prefixesUsed(node *xmlNode) map[string]struct{} {
	out := make(map[string]struct{})
	walkXML(node, func(n *xmlNode) bool {
		if n.IsText {
			return true
		}
		if prefix := prefixFromName(n.Name.Local); prefix != "" {
			out[prefix] = struct{}{}
		}
		for _, attr := range n.Attr {
			if prefix := prefixFromName(attr.Name.Local); prefix != "" {
				out[prefix] = struct{}{}
			}
		}
		return true
	})
	return out
}

func prefixFromName(name string) string {
	if name == "xmlns" || strings.HasPrefix(name, "xmlns:") {
		return ""
	}
	if idx := strings.IndexByte(name, ':'); idx > 0 {
		return name[:idx]
	}
	return ""
}

func requiredNamespaces(prefixes map[string]struct{}, root *xmlNode) map[string]string {
	declared := namespaceDecls(root)
	required := map[string]string{"w": wmlNamespace, "r": relNamespace}
	for prefix := range prefixes {
		if uri, ok := declared[prefix]; ok {
			required[prefix] = uri
		} else if uri, ok := knownNamespaceURIs[prefix]; ok {
			required[prefix] = uri
		}
	}
	return required
}

var xmlnsAttrPattern = regexp.MustCompile(`\s+xmlns(?::([A-Za-z0-9._-]+))?="([^"]+)"`)

func namespacesFromRootStart(rootStart string) map[string]string {
	out := make(map[string]string)
	for _, match := range xmlnsAttrPattern.FindAllStringSubmatch(rootStart, -1) {
		out[match[1]] = match[2]
	}
	return out
}

func ensureRootHasNamespaces(rootStart string, required map[string]string) string {
	if len(required) == 0 || rootStart == "" {
		return rootStart
	}
	existing := namespacesFromRootStart(rootStart)
	missing := make([]string, 0, len(required))
	for prefix, uri := range required {
		if uri == "" || existing[prefix] == uri {
			continue
		}
		if _, taken := existing[prefix]; taken {
			continue
		}
		missing = append(missing, prefix)
	}
	if len(missing) == 0 {
		return rootStart
	}
	sort.Strings(missing)

	var b strings.Builder
	for _, prefix := range missing {
		writeXMLNS(&b, prefix, required[prefix])
	}
	insert := b.String()

	if strings.HasSuffix(rootStart, "/>") {
		return rootStart[:len(rootStart)-2] + insert + "/>"
	}
	if idx := strings.LastIndex(rootStart, ">"); idx != -1 {
		return rootStart[:idx] + insert + rootStart[idx:]
	}
	return rootStart
}

func writeXMLNS(b *strings.Builder, prefix, uri string) {
	if prefix == "" {
		b.WriteString(` xmlns="`)
	} else {
		b.WriteString(" xmlns:")
		b.WriteString(prefix)
		b.WriteString(`="`)
	}
	xml.EscapeText(b, []byte(uri))
	b.WriteString(`"`)
}

// extractRootTags returns the literal root start and end tags of xmlText.
func extractRootTags(xmlText string) (string, string, error) {
	startIdx, endIdx, name, err := findRootStartTag(xmlText)
	if err != nil {
		return "", "", err
	}
	endTag := "</" + name + ">"
	endPos := strings.LastIndex(xmlText, endTag)
	if endPos == -1 {
		return "", "", errors.New("root end tag not found")
	}
	return xmlText[startIdx : endIdx+1], endTag, nil
}

func findRootStartTag(xmlText string) (int, int, string, error) {
	i := 0
	for {
		idx := strings.IndexByte(xmlText[i:], '<')
		if idx == -1 {
			return 0, 0, "", errors.New("root start tag not found")
		}
		i += idx
		skip, err := prologLen(xmlText[i:])
		if err != nil {
			return 0, 0, "", err
		}
		if skip == 0 {
			break
		}
		i += skip
	}

	start := i
	var quote byte
	for i = start + 1; i < len(xmlText); i++ {
		c := xmlText[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			name := rootTagName(xmlText[start+1 : i])
			if name == "" {
				return 0, 0, "", errors.New("root tag name missing")
			}
			return start, i, name, nil
		}
	}
	return 0, 0, "", errors.New("root start tag not terminated")
}

// prologLen returns the length of a leading declaration, comment or doctype.
func prologLen(rest string) (int, error) {
	var term string
	switch {
	case strings.HasPrefix(rest, "<?"):
		term = "?>"
	case strings.HasPrefix(rest, "<!--"):
		term = "-->"
	case strings.HasPrefix(rest, "<!"):
		term = ">"
	default:
		return 0, nil
	}
	end := strings.Index(rest, term)
	if end == -1 {
		return 0, errors.New("xml prolog not terminated")
	}
	return end + len(term), nil
}

func rootTagName(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw[0] == '/' {
		return ""
	}
	if idx := strings.IndexAny(raw, " \t\r\n/"); idx != -1 {
		return raw[:idx]
	}
	return raw
}
