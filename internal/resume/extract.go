package resume

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"code.sajari.com/docconv"

	"github.com/vibhu2208/candidate-indexer/internal/domain"
)

// ExtractText pulls plain text out of a resume document.
func ExtractText(mime string, data []byte) (string, error) {
	if !supportedContentType(mime) {
		return "", fmt.Errorf("content type %q: %w", mime, domain.ErrUnsupportedDocType)
	}

	// Legacy binary Word files sometimes sniff as the raw compound
	// file container.
	if mime == MimeXCFB {
		mime = MimeMSWord
	}

	res, err := docconv.Convert(bytes.NewReader(data), mime, true)
	if err != nil {
		return "", fmt.Errorf("extracting %s text: %w", mime, err)
	}
	return Normalize(res.Body), nil
}

// Normalize strips control characters and collapses runs of spaces so
// extracted text chunks and summarizes cleanly. Up to three consecutive
// newlines survive: the chunker treats blank lines as section and
// paragraph boundaries.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingSpace := false
	newlines := 0
	for _, r := range text {
		switch {
		case r == '\n':
			newlines++
			pendingSpace = false
		case r == '\r':
			// dropped, the paired \n counts
		case r == ' ' || r == '\t' || unicode.IsSpace(r):
			pendingSpace = true
		case unicode.IsControl(r):
			// dropped
		default:
			if newlines > 0 {
				if b.Len() > 0 {
					if newlines > 3 {
						newlines = 3
					}
					for i := 0; i < newlines; i++ {
						b.WriteByte('\n')
					}
				}
				newlines = 0
			} else if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
