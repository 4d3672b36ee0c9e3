package generatedresumes

const (
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimePDF  = "application/pdf"
)

// Kind names a downloadable artifact type.
type Kind string

const (
	KindDOCX Kind = "docx"
	KindPDF  Kind = "pdf"
)

// Artifacts names the files produced by one generation.
type Artifacts struct {
	DocxName string
	// PDFName is always set; the file only exists when PDFReady is true.
	PDFName  string
	PDFReady bool
	Pages    int
}

// ContentType returns the MIME type served for k.
func (k Kind) ContentType() string {
	if k == KindPDF {
		return MimePDF
	}
	return MimeDOCX
}

// Ext returns the file extension for k, with the dot.
func (k Kind) Ext() string {
	return "." + string(k)
}

func kindFromExt(ext string) (Kind, bool) {
	switch ext {
	case ".docx":
		return KindDOCX, true
	case ".pdf":
		return KindPDF, true
	}
	return "", false
}
