package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "templates.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndGetTemplate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	row := TemplateRow{Name: "fall", CourseCode: "BIO101", Notes: "first draft", Document: `{"template_name":"fall"}`}
	if err := db.SaveTemplate(ctx, row); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.GetTemplate(ctx, "fall", "BIO101")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Document != row.Document || got.Notes != "first draft" {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.ModifiedAt.IsZero() {
		t.Fatalf("timestamps should be set: %+v", got)
	}
}

func TestSaveUpsertsOnCourseAndName(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := TemplateRow{Name: "fall", CourseCode: "BIO101", Document: `{"v":1}`}
	if err := db.SaveTemplate(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := TemplateRow{Name: "fall", CourseCode: "BIO101", Document: `{"v":2}`}
	if err := db.SaveTemplate(ctx, second); err != nil {
		t.Fatalf("resave: %v", err)
	}

	all, err := db.ListTemplates(ctx, "BIO101")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected upsert to keep one row, got %d", len(all))
	}
	if all[0].Document != `{"v":2}` {
		t.Fatalf("expected replaced document, got %s", all[0].Document)
	}
}

func TestSameNameAcrossCoursesCoexists(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	for _, code := range []string{"BIO101", "CHM200"} {
		if err := db.SaveTemplate(ctx, TemplateRow{Name: "fall", CourseCode: code, Document: `{}`}); err != nil {
			t.Fatalf("save %s: %v", code, err)
		}
	}

	all, err := db.ListTemplates(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(all))
	}

	got, err := db.GetTemplate(ctx, "fall", "CHM200")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CourseCode != "CHM200" {
		t.Fatalf("course filter ignored: %+v", got)
	}
}

func TestGetMissingTemplate(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetTemplate(context.Background(), "nope", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTemplate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.SaveTemplate(ctx, TemplateRow{Name: "fall", CourseCode: "BIO101", Document: `{}`}); err != nil {
		t.Fatalf("save: %v", err)
	}

	deleted, err := db.DeleteTemplate(ctx, "fall", "BIO101")
	if err != nil || !deleted {
		t.Fatalf("expected delete to remove the row: deleted=%v err=%v", deleted, err)
	}
	deleted, err = db.DeleteTemplate(ctx, "fall", "BIO101")
	if err != nil || deleted {
		t.Fatalf("second delete should be a no-op: deleted=%v err=%v", deleted, err)
	}
}
