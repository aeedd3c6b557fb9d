package resume

import (
	"context"
	"testing"
)

func TestDetectContentTypeFromExtensionHint(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		ext  string
		want string
	}{
		{ext: "pdf", want: MimePDF},
		{ext: "doc", want: MimeMSWord},
		{ext: "docx", want: MimeOOXML},
	}

	for _, tc := range tests {
		got := DetectContentType(ctx, map[string]string{"original-file-extension": tc.ext}, []byte("irrelevant"))
		if got != tc.want {
			t.Errorf("ext %q: got %q, want %q", tc.ext, got, tc.want)
		}
	}
}

func TestDetectContentTypeSniffsWithoutHint(t *testing.T) {
	pdfBytes := []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n")

	got := DetectContentType(context.Background(), nil, pdfBytes)
	if got != MimePDF {
		t.Errorf("sniffed %q, want %q", got, MimePDF)
	}
}

func TestDetectContentTypeUnknownHintFallsBackToSniffing(t *testing.T) {
	pdfBytes := []byte("%PDF-1.4\n")

	got := DetectContentType(context.Background(), map[string]string{"original-file-extension": "rtf"}, pdfBytes)
	if got != MimePDF {
		t.Errorf("sniffed %q, want %q", got, MimePDF)
	}
}

func TestSupportedContentType(t *testing.T) {
	for mime, want := range map[string]bool{
		MimePDF:      true,
		MimeMSWord:   true,
		MimeOOXML:    true,
		MimeXCFB:     true,
		"text/plain": false,
		"":           false,
	} {
		if got := supportedContentType(mime); got != want {
			t.Errorf("supportedContentType(%q) = %v, want %v", mime, got, want)
		}
	}
}
