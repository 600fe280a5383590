package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detect(t *testing.T, name string, content []byte) FileFormat {
	t.Helper()
	format, err := DetectFormat(name, content)
	require.NoError(t, err)
	return format
}

func TestDetectFormat_ByExtension(t *testing.T) {
	assert.Equal(t, FormatPDF, detect(t, "report.pdf", nil))
	assert.Equal(t, FormatDOCX, detect(t, "notes.docx", nil))
	assert.Equal(t, FormatPPTX, detect(t, "deck.PPTX", nil))
	assert.Equal(t, FormatTXT, detect(t, "readme.txt", nil))
	assert.Equal(t, FormatDOC, detect(t, "old.doc", nil))
	assert.Equal(t, FormatRTF, detect(t, "memo.rtf", nil))
}

func TestDetectFormat_UnknownExtensionSniffsContent(t *testing.T) {
	pdf := []byte("%PDF-1.7\n%some content")
	assert.Equal(t, FormatPDF, detect(t, "document.bin", pdf))

	rtf := []byte(`{\rtf1\ansi hello}`)
	assert.Equal(t, FormatRTF, detect(t, "document", rtf))
}

func TestDetectFormat_ZipSniffing(t *testing.T) {
	docx := append([]byte("PK\x03\x04"), []byte("....word/document.xml....")...)
	assert.Equal(t, FormatDOCX, detect(t, "payload", docx))

	pptx := append([]byte("PK\x03\x04"), []byte("....ppt/slides/slide1.xml....")...)
	assert.Equal(t, FormatPPTX, detect(t, "payload", pptx))
}

func TestDetectFormat_OLECompoundFile(t *testing.T) {
	ole := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00, 0x00}
	assert.Equal(t, FormatDOC, detect(t, "legacy", ole))
}

func TestDetectFormat_Unsupported(t *testing.T) {
	format, err := DetectFormat("data.csv", []byte("a,b,c\n1,2,3"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Equal(t, FormatUnknown, format)

	_, err = DetectFormat("image.jpg", []byte{0xFF, 0xD8, 0xFF})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDetectFormat_ExtensionWinsOverContent(t *testing.T) {
	// A text file whose body happens to start with the PDF magic is still
	// treated as text.
	assert.Equal(t, FormatTXT, detect(t, "notes.txt", []byte("%PDF- is the pdf magic")))
}

func TestFirstPosition(t *testing.T) {
	img := &ExtractedImage{Positions: []ImagePosition{
		{Page: 3, Order: 0},
		{Page: 1, Order: 2},
		{Page: 1, Order: 1},
	}}
	assert.Equal(t, ImagePosition{Page: 1, Order: 1}, img.FirstPosition())

	empty := &ExtractedImage{}
	assert.Equal(t, ImagePosition{Page: -1}, empty.FirstPosition())
}
