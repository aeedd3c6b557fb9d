package resume

import (
	"context"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/vibhu2208/candidate-indexer/internal/logger"
)

// Content types of the resume formats the processor can extract.
const (
	MimePDF    = "application/pdf"
	MimeMSWord = "application/msword"
	MimeOOXML  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXCFB   = "application/x-cfb"
)

// extensionField is the object metadata key carrying the upload's
// original file extension.
const extensionField = "original-file-extension"

// DetectContentType resolves a resume's content type, trusting the
// stored extension hint first and falling back to byte-signature
// sniffing. Returns "" when the type cannot be determined.
func DetectContentType(ctx context.Context, metadata map[string]string, data []byte) string {
	log := logger.FromContext(ctx)

	switch metadata[extensionField] {
	case "pdf":
		return MimePDF
	case "doc":
		return MimeMSWord
	case "docx":
		return MimeOOXML
	}

	log.Info("no usable extension hint, sniffing content type",
		zap.String("extension", metadata[extensionField]))

	detected := mimetype.Detect(data)
	if detected == nil {
		return ""
	}
	return detected.String()
}

// supportedContentType reports whether text extraction exists for mime.
func supportedContentType(mime string) bool {
	switch mime {
	case MimePDF, MimeMSWord, MimeOOXML, MimeXCFB:
		return true
	}
	return false
}
