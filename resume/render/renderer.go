// Package render fills DOCX templates.
//
// Templates use {{NAME}} placeholders for scalar fields, {{#LIST}}...{{/LIST}}
// blocks for repeated records and an optional {{IMAGE}} placeholder for a photo.
// A block repeats the paragraphs or table rows between its tags; when both tags
// sit in one paragraph only the text between them repeats.
package render

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"voice-resume-backend/resume/model"
)

const (
	documentPart     = "word/document.xml"
	documentRelsPart = "word/_rels/document.xml.rels"
	contentTypesPart = "[Content_Types].xml"
)

var (
	ErrInvalidTemplate       = errors.New("invalid docx template")
	ErrUnresolvedPlaceholder = errors.New("template placeholder remains after rendering")
)

type zipEntry struct {
	header  zip.FileHeader
	content []byte
}

// Render fills template with ctx and returns the resulting DOCX bytes. When img
// is nil every {{IMAGE}} placeholder is dropped and no media is added.
func Render(template []byte, ctx model.Context, img *Image) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	entries := make([]*zipEntry, 0, len(reader.File)+2)
	index := make(map[string]*zipEntry, len(reader.File))
	for _, file := range reader.File {
		content, err := readZipFile(file)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidTemplate, file.Name, err)
		}
		entry := &zipEntry{header: file.FileHeader, content: content}
		entry.header.Name = normalizeZipName(file.Name)
		entries = append(entries, entry)
		index[entry.header.Name] = entry
	}

	doc, ok := index[documentPart]
	if !ok {
		return nil, fmt.Errorf("%w: %s missing", ErrInvalidTemplate, documentPart)
	}

	var rels string
	if entry, ok := index[documentRelsPart]; ok {
		rels = string(entry.content)
	}
	relID := nextRelID(rels)
	mediaName := ""
	if img != nil {
		mediaName = uniqueMediaName(index, img.extension())
	}

	rendered, placed, err := renderPart(string(doc.content), ctx, img, relID, mediaName)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", documentPart, err)
	}
	doc.content = []byte(rendered)

	for _, entry := range entries {
		if !isHeaderOrFooter(entry.header.Name) {
			continue
		}
		rendered, _, err := renderPart(string(entry.content), ctx, nil, "", "")
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", entry.header.Name, err)
		}
		entry.content = []byte(rendered)
	}

	if placed {
		entries, err = attachImage(entries, index, img, rels, relID, mediaName)
		if err != nil {
			return nil, err
		}
	}

	var output bytes.Buffer
	writer := zip.NewWriter(&output)
	for _, entry := range entries {
		if err := writeZipEntry(writer, entry); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return output.Bytes(), nil
}

// renderPart runs one WordprocessingML part through the substitution pipeline.
func renderPart(xmlText string, ctx model.Context, img *Image, relID, mediaName string) (string, bool, error) {
	rootStart, rootEnd, err := extractRootTags(xmlText)
	if err != nil {
		return "", false, err
	}
	root, header, err := parseXMLDocument(xmlText)
	if err != nil {
		return "", false, err
	}

	normalizePlaceholders(root)
	if err := expandLoops(root, ctx.Lists); err != nil {
		return "", false, err
	}
	placed, err := placeImage(root, img, relID, mediaName)
	if err != nil {
		return "", false, err
	}

	replacements := make(map[string]string, len(ctx.Fields))
	for name, value := range ctx.Fields {
		replacements[placeholder(name)] = value
	}
	replaceTokensInNode(root, replacements)
	clearPlaceholders(root)

	out, err := encodeXMLDocument(header, root, rootStart, rootEnd)
	if err != nil {
		return "", false, err
	}
	if err := validateDocumentXMLStrict(out); err != nil {
		return "", false, err
	}
	if err := validateDocumentXMLStructure(out); err != nil {
		return "", false, err
	}
	if tok := findRemainingToken(out); tok != "" {
		return "", false, fmt.Errorf("%w: %s", ErrUnresolvedPlaceholder, tok)
	}
	return out, placed, nil
}

func attachImage(entries []*zipEntry, index map[string]*zipEntry, img *Image, rels, relID, mediaName string) ([]*zipEntry, error) {
	updatedRels, err := addImageRelationship(rels, relID, "media/"+mediaName)
	if err != nil {
		return nil, err
	}
	if entry, ok := index[documentRelsPart]; ok {
		entry.content = []byte(updatedRels)
	} else {
		entries = append(entries, newZipEntry(documentRelsPart, []byte(updatedRels)))
	}

	types, ok := index[contentTypesPart]
	if !ok {
		return nil, fmt.Errorf("%w: %s missing", ErrInvalidTemplate, contentTypesPart)
	}
	updatedTypes, err := addContentTypeDefault(string(types.content), img.extension(), img.contentType())
	if err != nil {
		return nil, err
	}
	types.content = []byte(updatedTypes)

	return append(entries, newZipEntry("word/media/"+mediaName, img.Data)), nil
}

func uniqueMediaName(index map[string]*zipEntry, ext string) string {
	for i := 1; ; i++ {
		name := fmt.Sprintf("photo%d.%s", i, ext)
		if _, taken := index["word/media/"+name]; !taken {
			return name
		}
	}
}

func isHeaderOrFooter(name string) bool {
	dir, file := path.Split(name)
	if dir != "word/" || path.Ext(file) != ".xml" {
		return false
	}
	return strings.HasPrefix(file, "header") || strings.HasPrefix(file, "footer")
}

func newZipEntry(name string, content []byte) *zipEntry {
	return &zipEntry{header: zip.FileHeader{Name: name, Method: zip.Deflate}, content: content}
}

func readZipFile(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func writeZipEntry(writer *zip.Writer, entry *zipEntry) error {
	header := entry.header
	dst, err := writer.CreateHeader(&header)
	if err != nil {
		return err
	}
	_, err = dst.Write(entry.content)
	return err
}

func normalizeZipName(name string) string {
	return strings.ReplaceAll(name, "\\", "/")
}

func findRemainingToken(xmlText string) string {
	return placeholderPattern.FindString(xmlText)
}

// validateDocumentXMLStrict checks that every known namespace used in the
// output is declared on the root element.
func validateDocumentXMLStrict(xmlText string) error {
	rootStart, _, err := extractRootTags(xmlText)
	if err != nil {
		return err
	}
	declared := namespacesFromRootStart(rootStart)
	prefixes := make(map[string]string, len(knownNamespaceURIs))
	for prefix, uri := range knownNamespaceURIs {
		prefixes[uri] = prefix
	}

	decoder := xml.NewDecoder(strings.NewReader(xmlText))
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("rendered xml parse failed: %w\n%s", err, firstLines(xmlText, 5))
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		names := append([]xml.Name{start.Name}, attrNames(start.Attr)...)
		for _, name := range names {
			prefix, known := prefixes[name.Space]
			if !known || declared[prefix] == name.Space {
				continue
			}
			return fmt.Errorf("rendered xml missing root namespace for %s:%s", prefix, name.Local)
		}
	}
}

func attrNames(attrs []xml.Attr) []xml.Name {
	out := make([]xml.Name, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, attr.Name)
	}
	return out
}

// validateDocumentXMLStructure rejects nested paragraphs and run properties
// that follow run text, both of which Word refuses to open. A text box starts a
// new story, so paragraphs inside one may sit within an outer paragraph.
func validateDocumentXMLStructure(xmlText string) error {
	decoder := xml.NewDecoder(strings.NewReader(xmlText))
	stories := []int{0} // open paragraphs per story
	var runs []bool     // seen <w:t> per open run

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("rendered xml parse failed: %w", err)
		}
		top := len(stories) - 1
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case isWmlName(t.Name, "txbxContent"):
				stories = append(stories, 0)
			case isWmlName(t.Name, "p"):
				if stories[top] > 0 {
					return errors.New("rendered xml has nested <w:p>")
				}
				stories[top]++
			case isWmlName(t.Name, "r"):
				runs = append(runs, false)
			case isWmlName(t.Name, "t") && len(runs) > 0:
				runs[len(runs)-1] = true
			case isWmlName(t.Name, "rPr") && len(runs) > 0 && runs[len(runs)-1]:
				return errors.New("rendered xml has <w:rPr> after <w:t> in a run")
			}
		case xml.EndElement:
			switch {
			case isWmlName(t.Name, "txbxContent") && top > 0:
				stories = stories[:top]
			case isWmlName(t.Name, "p") && stories[top] > 0:
				stories[top]--
			case isWmlName(t.Name, "r") && len(runs) > 0:
				runs = runs[:len(runs)-1]
			}
		}
	}
}

func isWmlName(name xml.Name, local string) bool {
	return name.Local == local && name.Space == wmlNamespace
}

func firstLines(text string, count int) string {
	lines := strings.SplitN(text, "\n", count+1)
	if len(lines) > count {
		lines = lines[:count]
	}
	return strings.Join(lines, "\n")
}
