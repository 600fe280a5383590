package domain

import (
	"bytes"
	"path/filepath"
	"strings"
)

// FileFormat identifies a supported document format.
type FileFormat string

const (
	FormatPDF     FileFormat = "pdf"
	FormatDOCX    FileFormat = "docx"
	FormatPPTX    FileFormat = "pptx"
	FormatTXT     FileFormat = "txt"
	FormatDOC     FileFormat = "doc"
	FormatRTF     FileFormat = "rtf"
	FormatUnknown FileFormat = "unknown"
)

// Document is one file being ingested. Content is transient: it lives for
// the duration of a single pipeline run and is never persisted.
type Document struct {
	FileID   string
	TenantID string
	Name     string
	Format   FileFormat
	Content  []byte
}

var formatByExtension = map[string]FileFormat{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".pptx": FormatPPTX,
	".txt":  FormatTXT,
	".doc":  FormatDOC,
	".rtf":  FormatRTF,
}

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
	rtfMagic = []byte("{\\rtf")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectFormat classifies a file by extension, falling back to its byte
// signature when the extension is missing or unknown. Returns
// ErrUnsupportedFormat when no parser can handle the file.
func DetectFormat(name string, content []byte) (FileFormat, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if format, ok := formatByExtension[ext]; ok {
		return format, nil
	}

	if format := sniffFormat(content); format != FormatUnknown {
		return format, nil
	}

	return FormatUnknown, ErrUnsupportedFormat
}

func sniffFormat(content []byte) FileFormat {
	switch {
	case bytes.HasPrefix(content, pdfMagic):
		return FormatPDF
	case bytes.HasPrefix(content, rtfMagic):
		return FormatRTF
	case bytes.HasPrefix(content, oleMagic):
		return FormatDOC
	case bytes.HasPrefix(content, zipMagic):
		// DOCX and PPTX are both OOXML zips; tell them apart by the
		// part directory recorded near the start of the archive.
		head := content
		if len(head) > 4096 {
			head = head[:4096]
		}
		if bytes.Contains(head, []byte("word/")) {
			return FormatDOCX
		}
		if bytes.Contains(head, []byte("ppt/")) {
			return FormatPPTX
		}
	}
	return FormatUnknown
}

// MIMEType returns the content type docconv expects for this format.
func (f FileFormat) MIMEType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatPPTX:
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case FormatDOC:
		return "application/msword"
	case FormatRTF:
		return "application/rtf"
	case FormatTXT:
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
