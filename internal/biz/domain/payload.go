package domain

// Part is one element of a model request payload
type Part struct {
	Text     string
	Data     []byte // inline bytes (images, audio)
	FileURI  string // uploaded file reference
	MIMEType string
}

// TextPart creates a text part
func TextPart(text string) Part {
	return Part{Text: text}
}

// IsText reports whether the part carries only text
func (p Part) IsText() bool {
	return p.Data == nil && p.FileURI == ""
}

// Source is one grounding citation
type Source struct {
	Title string
	URI   string
}

// Generation is the result of a text generation call
type Generation struct {
	Text          string
	Sources       []Source
	SearchQueries []string
}

// ImageGeneration is the result of an image generation call
type ImageGeneration struct {
	Text   string
	Images [][]byte
}

// UploadedFile references a file stored by the model backend
type UploadedFile struct {
	Name     string
	URI      string
	MIMEType string
}
