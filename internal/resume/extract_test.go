package resume

import (
	"errors"
	"testing"

	"github.com/vibhu2208/candidate-indexer/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "collapses space runs",
			in:   "Go   developer\twith  eight years",
			want: "Go developer with eight years",
		},
		{
			name: "keeps paragraph breaks",
			in:   "Experience\n\nBuilt services.\n\n\nEducation",
			want: "Experience\n\nBuilt services.\n\n\nEducation",
		},
		{
			name: "caps newline runs at three",
			in:   "a\n\n\n\n\n\nb",
			want: "a\n\n\nb",
		},
		{
			name: "strips carriage returns",
			in:   "line one\r\nline two",
			want: "line one\nline two",
		},
		{
			name: "drops control characters",
			in:   "nul\x00 and bell\x07 removed",
			want: "nul and bell removed",
		},
		{
			name: "trims surrounding whitespace",
			in:   "\n\n  padded  \n\n",
			want: "padded",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestExtractTextUnsupportedType(t *testing.T) {
	_, err := ExtractText("image/png", []byte{0x89, 0x50, 0x4e, 0x47})
	if !errors.Is(err, domain.ErrUnsupportedDocType) {
		t.Errorf("expected ErrUnsupportedDocType, got %v", err)
	}

	_, err = ExtractText("", nil)
	if !errors.Is(err, domain.ErrUnsupportedDocType) {
		t.Errorf("expected ErrUnsupportedDocType for empty type, got %v", err)
	}
}
