package archive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/pdfarchiver/internal/apperr"
	"github.com/starford/pdfarchiver/internal/checksum"
	"github.com/starford/pdfarchiver/internal/index"
	"github.com/starford/pdfarchiver/internal/models"
	"github.com/starford/pdfarchiver/internal/naming"
	"github.com/starford/pdfarchiver/internal/testutil"
)

func testService(t *testing.T, tagging bool, keywords ...string) *Service {
	t.Helper()
	_, store := testutil.TestArchive(t)
	db := testutil.TestDB(t)
	return NewService(store, db, Options{
		Dates:  naming.NewDateParser("de_DE", "en_US"),
		Tagger: naming.NewTagger(tagging, keywords...),
	})
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestImportDocument_Canonical(t *testing.T) {
	svc := testService(t, false)
	ctx := context.Background()

	doc, err := svc.ImportDocument(ctx, "2010-05-12--example-description__tag1_tag2.pdf", testutil.PDF("hello"))
	if err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}
	if doc.Path != "2010/2010-05-12--example-description__tag1_tag2.pdf" {
		t.Errorf("path = %q", doc.Path)
	}
	if !doc.Tagged || doc.Specification != "example-description" || len(doc.Tags) != 2 {
		t.Errorf("doc = %+v", doc.Document)
	}
	if doc.Pages != 1 {
		t.Errorf("pages = %d, want 1", doc.Pages)
	}
	if !strings.Contains(doc.Content, "hello") {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestImportDocument_FillsFromContent(t *testing.T) {
	svc := testService(t, true, "ikea")
	ctx := context.Background()

	data := testutil.PDF("IKEA Deutschland\nRechnungsdatum: 20190412")
	doc, err := svc.ImportDocument(ctx, "lamp.pdf", data)
	if err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}
	want := "2019/2019-04-12--lamp__ikea.pdf"
	if doc.Path != want {
		t.Errorf("path = %q, want %q", doc.Path, want)
	}
	if !doc.Date.Equal(day(2019, time.April, 12)) {
		t.Errorf("date = %v", doc.Date)
	}
}

func TestImportDocument_Untagged(t *testing.T) {
	svc := testService(t, false)
	ctx := context.Background()

	doc, err := svc.ImportDocument(ctx, "scan 0001.pdf", testutil.PDF("no metadata here"))
	if err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}
	if doc.Path != "untagged/scan 0001.pdf" || doc.Tagged {
		t.Errorf("doc = %+v", doc.Document)
	}

	_, err = svc.ImportDocument(ctx, "scan 0001.pdf", testutil.PDF("again"))
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second import err = %v, want ErrAlreadyExists", err)
	}
}

func TestImportDocument_RejectsNonPDF(t *testing.T) {
	svc := testService(t, false)
	_, err := svc.ImportDocument(context.Background(), "evil.pdf", []byte("<html></html>"))
	if !errors.Is(err, apperr.ErrInvalidDocument) {
		t.Errorf("err = %v, want ErrInvalidDocument", err)
	}
}

// flakyIndex fails UpsertDocument while fail is set.
type flakyIndex struct {
	index.DocumentIndex
	fail bool
}

func (f *flakyIndex) UpsertDocument(d models.Document, content string) error {
	if f.fail {
		return errors.New("disk I/O error")
	}
	return f.DocumentIndex.UpsertDocument(d, content)
}

func TestImportDocument_RollsBackOnIndexFailure(t *testing.T) {
	_, store := testutil.TestArchive(t)
	db := &flakyIndex{DocumentIndex: testutil.TestDB(t), fail: true}
	svc := NewService(store, db, Options{Dates: naming.NewDateParser("en_US")})
	ctx := context.Background()

	name := "2010-05-12--example-description__tag1.pdf"
	if _, err := svc.ImportDocument(ctx, name, testutil.PDF("hello")); err == nil {
		t.Fatal("expected index error")
	}
	if _, err := store.Stat("2010/" + name); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Stat after failed import: err = %v, want ErrNotFound", err)
	}

	db.fail = false
	doc, err := svc.ImportDocument(ctx, name, testutil.PDF("hello"))
	if err != nil {
		t.Fatalf("retry ImportDocument: %v", err)
	}
	if doc.Path != "2010/"+name {
		t.Errorf("path = %q", doc.Path)
	}
}

func TestImportName(t *testing.T) {
	cases := map[string]string{
		"scan.pdf":          "scan.pdf",
		"../../etc/x.pdf":   "x.pdf",
		`C:\Users\me\a.PDF`: "a.PDF",
		"report.docx":       "report.pdf",
		"noext":             "noext.pdf",
	}
	for in, want := range cases {
		if got := importName(in); got != want {
			t.Errorf("importName(%q) = %q, want %q", in, got, want)
		}
	}
	for _, in := range []string{"", ".pdf", "/"} {
		got := importName(in)
		if len(got) != 36+len(".pdf") || !strings.HasSuffix(got, ".pdf") {
			t.Errorf("importName(%q) = %q, want generated uuid name", in, got)
		}
	}
}

func TestGetDocument_IndexesOnDemand(t *testing.T) {
	_, store := testutil.TestArchive(t)
	db := testutil.TestDB(t)
	svc := NewService(store, db, Options{Dates: naming.NewDateParser("en_US")})
	ctx := context.Background()

	data := testutil.PDF("x")
	if err := store.Write("2020/2020-01-02--dropped-in__misc.pdf", data); err != nil {
		t.Fatal(err)
	}
	doc, err := svc.GetDocument(ctx, "2020/2020-01-02--dropped-in__misc.pdf")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if doc.Checksum != checksum.Sum(data) || doc.Specification != "dropped-in" {
		t.Errorf("doc = %+v", doc.Document)
	}

	if _, err := svc.GetDocument(ctx, "missing.pdf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
}

func TestUpdateDocument(t *testing.T) {
	svc := testService(t, false)
	ctx := context.Background()

	imported, err := svc.ImportDocument(ctx, "scan.pdf", testutil.PDF("body"))
	if err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}

	_, err = svc.UpdateDocument(ctx, imported.Path, Update{Date: day(2021, time.March, 4)}, "stale")
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale ifMatch err = %v, want ErrConflict", err)
	}

	_, err = svc.UpdateDocument(ctx, imported.Path, Update{Specification: "x"}, "")
	if !errors.Is(err, apperr.ErrInvalidDocument) {
		t.Fatalf("missing date err = %v, want ErrInvalidDocument", err)
	}

	updated, err := svc.UpdateDocument(ctx, imported.Path, Update{
		Date:          day(2021, time.March, 4),
		Specification: "Strom Rechnung",
		Tags:          []string{"Strom", "bill"},
	}, imported.Checksum)
	if err != nil {
		t.Fatalf("UpdateDocument: %v", err)
	}
	if updated.Path != "2021/2021-03-04--Strom-Rechnung__bill_strom.pdf" || !updated.Tagged {
		t.Errorf("updated = %+v", updated.Document)
	}
	if _, err := svc.GetDocument(ctx, imported.Path); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old path err = %v, want ErrNotFound", err)
	}

	docs, total, err := svc.ListDocuments(ctx, ListOptions{})
	if err != nil || total != 1 || docs[0].Path != updated.Path {
		t.Errorf("list after update = %+v, %d, %v", docs, total, err)
	}
}

func TestDeleteDocument(t *testing.T) {
	svc := testService(t, false)
	ctx := context.Background()

	doc, err := svc.ImportDocument(ctx, "2020-02-02--gone__x.pdf", testutil.PDF("bye"))
	if err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}
	if err := svc.DeleteDocument(ctx, doc.Path); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	_, total, _ := svc.ListDocuments(ctx, ListOptions{})
	if total != 0 {
		t.Errorf("total = %d after delete", total)
	}
	if err := svc.DeleteDocument(ctx, doc.Path); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestSuggest(t *testing.T) {
	svc := testService(t, true, "strom")
	ctx := context.Background()

	doc, err := svc.ImportDocument(ctx, "stromrechnung.pdf", testutil.PDF("Ihre Strom Abrechnung\nBerlin, den 12. März 2020"))
	if err != nil {
		t.Fatalf("ImportDocument: %v", err)
	}
	// Date and tag come from the content, so the document is filed.
	if doc.Path != "2020/2020-03-12--stromrechnung__strom.pdf" {
		t.Fatalf("path = %q", doc.Path)
	}

	sug, err := svc.Suggest(ctx, doc.Path)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if !sug.Date.Equal(day(2020, time.March, 12)) {
		t.Errorf("date = %v", sug.Date)
	}
	if len(sug.Dates) != 1 || sug.Dates[0].Raw != "12. März 2020" {
		t.Errorf("dates = %+v", sug.Dates)
	}
	if len(sug.Tags) != 1 || sug.Tags[0] != "strom" {
		t.Errorf("tags = %v", sug.Tags)
	}
	if sug.Filename != "2020-03-12--stromrechnung__strom.pdf" {
		t.Errorf("filename = %q", sug.Filename)
	}
}

func TestSearchAndTags(t *testing.T) {
	svc := testService(t, false)
	ctx := context.Background()

	for _, name := range []string{
		"2020-01-10--kitchen-table__bill_ikea.pdf",
		"2020-02-11--tom-tailor-shirt__bill_clothes.pdf",
		"2020-03-12--desk-lamp__ikea.pdf",
	} {
		if _, err := svc.ImportDocument(ctx, name, testutil.PDF(name)); err != nil {
			t.Fatalf("ImportDocument(%s): %v", name, err)
		}
	}

	hits, err := svc.Search(ctx, "bill", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %+v, want 2", hits)
	}
	for _, h := range hits {
		if !strings.Contains(h.Path, "bill") {
			t.Errorf("unexpected hit %s", h.Path)
		}
	}

	limited, _ := svc.Search(ctx, "2020", 1)
	if len(limited) != 1 {
		t.Errorf("limit ignored: %d hits", len(limited))
	}

	tags, err := svc.Tags(ctx)
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if len(tags) != 3 || tags[0].Count != 2 {
		t.Errorf("tags = %+v", tags)
	}

	found, err := svc.SearchTags(ctx, "ik")
	if err != nil {
		t.Fatalf("SearchTags: %v", err)
	}
	if len(found) != 1 || found[0].Name != "ikea" {
		t.Errorf("SearchTags = %+v", found)
	}

	content, err := svc.SearchContent(ctx, "lamp", 10)
	if err != nil {
		t.Fatalf("SearchContent: %v", err)
	}
	if len(content) != 1 {
		t.Errorf("content hits = %+v", content)
	}
}
