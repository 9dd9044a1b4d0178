package pdftext

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/pdfarchiver/internal/apperr"
	"github.com/starford/pdfarchiver/internal/testutil"
)

func TestInspect(t *testing.T) {
	info, err := Inspect(testutil.PDF("first", "second", "third"))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Pages != 3 {
		t.Errorf("pages = %d, want 3", info.Pages)
	}
}

func TestInspect_NotPDF(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("hello world"), []byte("%PDF-1.4\ngarbage")} {
		_, err := Inspect(data)
		if !errors.Is(err, apperr.ErrInvalidDocument) {
			t.Errorf("Inspect(%q) err = %v, want ErrInvalidDocument", data, err)
		}
	}
}

func TestText(t *testing.T) {
	data := testutil.PDF("Rechnung IKEA\nRechnungsdatum: 20190412", "Seite zwei")
	text, err := Text(data, 0)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	for _, want := range []string{"Rechnung", "IKEA", "20190412", "zwei"} {
		if !strings.Contains(text, want) {
			t.Errorf("text %q does not contain %q", text, want)
		}
	}
}

func TestText_MaxPages(t *testing.T) {
	data := testutil.PDF("alpha", "beta", "gamma")
	text, err := Text(data, 1)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if !strings.Contains(text, "alpha") || strings.Contains(text, "beta") {
		t.Errorf("text = %q, want only the first page", text)
	}
}

func TestText_Garbage(t *testing.T) {
	if _, err := Text([]byte("not a pdf"), 0); err == nil {
		t.Error("expected error for non-PDF input")
	}
}
