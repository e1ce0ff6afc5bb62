package index

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractText_PlainFiles(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "not.txt")
	if err := os.WriteFile(txt, []byte("düz metin içeriği"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := extractText(txt)
	if err != nil {
		t.Fatal(err)
	}
	if got != "düz metin içeriği" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestExtractText_UnsupportedExtension(t *testing.T) {
	_, err := extractText("sunum.pptx")
	if err == nil || !strings.Contains(err.Error(), "unsupported document type") {
		t.Fatalf("expected unsupported type error, got %v", err)
	}
}

func TestDocType(t *testing.T) {
	cases := map[string]string{
		"a/b/kitap.PDF": "pdf",
		"not.txt":       "txt",
		"rapor.docx":    "docx",
		"README":        "unknown",
	}
	for path, want := range cases {
		if got := docType(path); got != want {
			t.Errorf("docType(%q) = %q, want %q", path, got, want)
		}
	}
}
