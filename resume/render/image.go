package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// ImageWidthEMU is the rendered photo width: 40 mm at 36000 EMU per mm.
const ImageWidthEMU = 40 * 36000

const imageRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"

var ErrUnsupportedImage = errors.New("unsupported image format")

// Image is a decoded-enough photo ready to embed.
type Image struct {
	Data   []byte
	Format string // png, jpeg or gif
	Width  int
	Height int
}

// LoadImage reads an image file and records its format and pixel size.
func LoadImage(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeImage(data)
}

// DecodeImage inspects image bytes without decoding the pixels.
func DecodeImage(data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	return &Image{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

func (img *Image) extension() string {
	if img.Format == "jpeg" {
		return "jpg"
	}
	return img.Format
}

func (img *Image) contentType() string {
	return "image/" + img.Format
}

// extent returns the drawing size in EMU, scaled to the fixed width.
func (img *Image) extent() (int64, int64) {
	cx := int64(ImageWidthEMU)
	cy := cx * int64(img.Height) / int64(img.Width)
	return cx, cy
}

const drawingTemplate = `<w:r><w:drawing>` +
	`<wp:inline distT="0" distB="0" distL="0" distR="0">` +
	`<wp:extent cx="%[1]d" cy="%[2]d"/>` +
	`<wp:docPr id="%[3]d" name="Picture %[3]d"/>` +
	`<wp:cNvGraphicFramePr><a:graphicFrameLocks noChangeAspect="1"/></wp:cNvGraphicFramePr>` +
	`<a:graphic><a:graphicData uri="http://schemas.openxmlformats.org/drawingml/2006/picture">` +
	`<pic:pic><pic:nvPicPr><pic:cNvPr id="%[3]d" name="%[4]s"/><pic:cNvPicPr/></pic:nvPicPr>` +
	`<pic:blipFill><a:blip r:embed="%[5]s"/><a:stretch><a:fillRect/></a:stretch></pic:blipFill>` +
	`<pic:spPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="%[1]d" cy="%[2]d"/></a:xfrm>` +
	`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></pic:spPr></pic:pic>` +
	`</a:graphicData></a:graphic></wp:inline></w:drawing></w:r>`

// drawingRun builds the run holding an inline picture bound to relID.
func drawingRun(img *Image, relID, mediaName string, docPrID int) (*xmlNode, error) {
	cx, cy := img.extent()
	markup := fmt.Sprintf(drawingTemplate, cx, cy, docPrID, mediaName, relID)
	nodes, err := parseFragment(markup, knownNamespaceURIs)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, errors.New("drawing markup produced no run")
	}
	return nodes[0], nil
}

// placeImage swaps each {{IMAGE}} placeholder for the picture, or for nothing
// when img is nil. It reports whether the picture was placed.
func placeImage(root *xmlNode, img *Image, relID, mediaName string) (bool, error) {
	const tag = "{{IMAGE}}"
	var targets []*xmlNode
	walkXML(root, func(n *xmlNode) bool {
		if isElement(n, "p") {
			if strings.Contains(paragraphText(n), tag) {
				targets = append(targets, n)
			}
		}
		return true
	})

	placed := false
	nextID := maxDocPrID(root) + 1
	for _, p := range targets {
		replaceTokensInParagraph(p, map[string]string{tag: ""})
		if img == nil {
			continue
		}
		run, err := drawingRun(img, relID, mediaName, nextID)
		if err != nil {
			return false, err
		}
		nextID++
		p.Children = append(p.Children, run)
		placed = true
	}
	return placed, nil
}

func maxDocPrID(root *xmlNode) int {
	maxID := 0
	walkXML(root, func(n *xmlNode) bool {
		if !n.IsText && (n.Name.Local == "docPr" || strings.HasSuffix(n.Name.Local, ":docPr")) {
			if id, err := strconv.Atoi(attrValue(n, "id")); err == nil && id > maxID {
				maxID = id
			}
		}
		return true
	})
	return maxID
}

var relIDPattern = regexp.MustCompile(`Id="rId(\d+)"`)

// nextRelID returns an rId not yet used in the relationships part.
func nextRelID(rels string) string {
	maxID := 0
	for _, match := range relIDPattern.FindAllStringSubmatch(rels, -1) {
		if n, err := strconv.Atoi(match[1]); err == nil && n > maxID {
			maxID = n
		}
	}
	return "rId" + strconv.Itoa(maxID+1)
}

const emptyRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

func addImageRelationship(rels, relID, target string) (string, error) {
	if rels == "" {
		rels = emptyRels
	}
	idx := strings.LastIndex(rels, "</Relationships>")
	if idx == -1 {
		return "", errors.New("document relationships part is malformed")
	}
	entry := fmt.Sprintf(`<Relationship Id="%s" Type="%s" Target="%s"/>`, relID, imageRelType, target)
	return rels[:idx] + entry + rels[idx:], nil
}

func addContentTypeDefault(types, ext, contentType string) (string, error) {
	if strings.Contains(strings.ToLower(types), `extension="`+ext+`"`) {
		return types, nil
	}
	idx := strings.LastIndex(types, "</Types>")
	if idx == -1 {
		return "", errors.New("content types part is malformed")
	}
	entry := fmt.Sprintf(`<Default Extension="%s" ContentType="%s"/>`, ext, contentType)
	return types[:idx] + entry + types[idx:], nil
}
