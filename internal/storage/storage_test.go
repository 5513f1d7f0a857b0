package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

type testData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestDocument_WriteAndRead(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := NewDocument(fs, "/home/user/.kodegen/config.json")
	ctx := context.Background()

	if err := d.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}

	data := testData{ID: "123", Name: "test", Value: 42}
	if err := d.Write(ctx, data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if !d.Exists() {
		t.Fatal("File was not created")
	}

	var retrieved testData
	if err := d.Read(ctx, &retrieved); err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if retrieved != data {
		t.Errorf("Data mismatch: got %+v, want %+v", retrieved, data)
	}

	if ok, _ := afero.Exists(fs, d.Path()+".tmp"); ok {
		t.Error("Temp file should have been renamed away")
	}
}

func TestDocument_WriteIsPrettyPrinted(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := NewDocument(fs, "/cfg/config.json")

	if err := d.Write(context.Background(), testData{ID: "1"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	raw, err := afero.ReadFile(fs, "/cfg/config.json")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(raw), "\n  \"id\": \"1\"") {
		t.Errorf("Expected two-space indented JSON, got:\n%s", raw)
	}
}

func TestDocument_ReadNotFound(t *testing.T) {
	d := NewDocument(afero.NewMemMapFs(), "/missing/config.json")

	var data testData
	if err := d.Read(context.Background(), &data); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got: %v", err)
	}
}

func TestDocument_ReadToleratesComments(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := `{
		// hand edited
		"id": "abc",
		"value": 7,
	}`
	if err := afero.WriteFile(fs, "/c.json", []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	var data testData
	if err := NewDocument(fs, "/c.json").Read(context.Background(), &data); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if data.ID != "abc" || data.Value != 7 {
		t.Errorf("Unexpected data: %+v", data)
	}
}

func TestDocument_ReadMalformed(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/c.json", []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	var data testData
	err := NewDocument(fs, "/c.json").Read(context.Background(), &data)
	if err == nil || err == ErrNotFound {
		t.Errorf("Expected decode error, got: %v", err)
	}
}

func TestDocument_WriteReadOnlyFs(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	d := NewDocument(fs, "/c.json")

	if err := d.Write(context.Background(), testData{}); err == nil {
		t.Error("Expected write to fail on a read-only filesystem")
	}
}

func TestDocument_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDocument(afero.NewMemMapFs(), "/c.json")
	if err := d.Write(ctx, testData{}); err == nil {
		t.Error("Expected canceled context to abort the write")
	}
}
