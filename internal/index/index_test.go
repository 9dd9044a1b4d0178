package index

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/pdfarchiver/internal/apperr"
	"github.com/starford/pdfarchiver/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "pdfarchiver-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func doc(path, date, spec string, tags ...string) models.Document {
	d := models.Document{
		Path:          path,
		Filename:      path,
		Specification: spec,
		Tags:          tags,
		Checksum:      "cs-" + path,
		UpdatedAt:     time.Now(),
	}
	if date != "" {
		d.Date, _ = time.Parse(dateLayout, date)
	}
	return d
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM document_tags`).Scan(&count); err != nil {
		t.Fatalf("document_tags table missing: %v", err)
	}
}

func TestUpsertAndGetDocument(t *testing.T) {
	db := testDB(t)
	d := doc("2010/2010-05-12--example__bill_ikea.pdf", "2010-05-12", "example", "bill", "ikea")
	d.Tagged = true
	d.Pages = 2
	d.Size = 1234
	if err := db.UpsertDocument(d, "Rechnung IKEA"); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}

	got, err := db.GetDocument(d.Path)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if !got.Date.Equal(d.Date) || got.Specification != "example" || !got.Tagged || got.Pages != 2 || got.Size != 1234 {
		t.Errorf("document = %+v", got.Document)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "bill" || got.Tags[1] != "ikea" {
		t.Errorf("tags = %v", got.Tags)
	}
	if got.Content != "Rechnung IKEA" {
		t.Errorf("content = %q", got.Content)
	}

	cs, err := db.GetChecksum(d.Path)
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != d.Checksum {
		t.Errorf("checksum = %q, want %q", cs, d.Checksum)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetDocument("missing.pdf"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestUndatedDocument(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertDocument(doc("untagged/scan.pdf", "", ""), ""); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	got, err := db.GetDocument("untagged/scan.pdf")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if !got.Date.IsZero() {
		t.Errorf("date = %v, want zero", got.Date)
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Errorf("tags = %#v, want empty slice", got.Tags)
	}
}

func TestUpsertReplacesTags(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(doc("a.pdf", "2020-01-01", "a", "old", "shared"), "")
	_ = db.UpsertDocument(doc("a.pdf", "2020-01-01", "a", "new", "shared"), "")

	tags, err := db.Tags()
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	names := map[string]int{}
	for _, tc := range tags {
		names[tc.Name] = tc.Count
	}
	if _, ok := names["old"]; ok {
		t.Error("old tag should be removed on upsert")
	}
	if names["new"] != 1 || names["shared"] != 1 {
		t.Errorf("tags = %v", names)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(doc("del.pdf", "2020-01-01", "x", "gone"), "body")

	if err := db.DeleteDocument("del.pdf"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	cs, _ := db.GetChecksum("del.pdf")
	if cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	tags, _ := db.Tags()
	if len(tags) != 0 {
		t.Errorf("expected no tags after delete, got %v", tags)
	}
}

func TestListDocuments(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(doc("2019/a.pdf", "2019-03-01", "a", "bill"), "")
	_ = db.UpsertDocument(doc("2020/b.pdf", "2020-06-01", "b", "bill", "ikea"), "")
	_ = db.UpsertDocument(doc("2020/c.pdf", "2020-01-15", "c", "tax"), "")
	_ = db.UpsertDocument(doc("untagged/d.pdf", "", ""), "")

	all, total, err := db.ListDocuments(ListFilter{})
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 4 || len(all) != 4 {
		t.Fatalf("total = %d, len = %d, want 4", total, len(all))
	}
	if all[0].Path != "2020/b.pdf" || all[3].Path != "untagged/d.pdf" {
		t.Errorf("default order = %v, %v ... %v", all[0].Path, all[1].Path, all[3].Path)
	}

	asc, _, _ := db.ListDocuments(ListFilter{Sort: SortDateAsc})
	if asc[0].Path != "2019/a.pdf" || asc[3].Path != "untagged/d.pdf" {
		t.Errorf("ascending order = %v ... %v", asc[0].Path, asc[3].Path)
	}

	bills, total, _ := db.ListDocuments(ListFilter{Tag: "bill"})
	if total != 2 || len(bills) != 2 {
		t.Errorf("tag filter total = %d", total)
	}

	y2020, total, _ := db.ListDocuments(ListFilter{Year: 2020})
	if total != 2 || len(y2020) != 2 {
		t.Errorf("year filter total = %d", total)
	}

	both, total, _ := db.ListDocuments(ListFilter{Year: 2020, Tag: "bill"})
	if total != 1 || both[0].Path != "2020/b.pdf" {
		t.Errorf("combined filter = %+v", both)
	}

	page, total, _ := db.ListDocuments(ListFilter{Limit: 2, Offset: 2})
	if total != 4 || len(page) != 2 || page[0].Path != "2019/a.pdf" {
		t.Errorf("paging: total = %d, page = %+v", total, page)
	}
}

func TestTagsCounts(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(doc("a.pdf", "2020-01-01", "a", "bill", "ikea"), "")
	_ = db.UpsertDocument(doc("b.pdf", "2020-01-02", "b", "bill"), "")

	tags, err := db.Tags()
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if len(tags) != 2 || tags[0] != (models.TagCount{Name: "bill", Count: 2}) || tags[1] != (models.TagCount{Name: "ikea", Count: 1}) {
		t.Errorf("tags = %+v", tags)
	}
}

func TestAllChecksumsAndDocuments(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(doc("a.pdf", "2020-01-01", "a"), "")
	_ = db.UpsertDocument(doc("b.pdf", "2021-01-01", "b"), "")

	cs, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if len(cs) != 2 || cs["a.pdf"] != "cs-a.pdf" {
		t.Errorf("checksums = %v", cs)
	}

	docs, err := db.AllDocuments()
	if err != nil {
		t.Fatalf("AllDocuments: %v", err)
	}
	if len(docs) != 2 || docs[0].Path != "b.pdf" {
		t.Errorf("documents = %+v", docs)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(doc("s.pdf", "2020-01-01", "search-me"), "the uniqueword appears here")

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.pdf" {
		t.Errorf("search results = %+v, want 1 hit for s.pdf", results)
	}
}
