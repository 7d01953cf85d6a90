package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func uploadServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/files" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file part: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		f.Close()

		n := count.Add(1)
		json.NewEncoder(w).Encode(map[string]any{
			"id":   fmt.Sprintf("file-%d", n),
			"name": header.Filename,
			"size": len(data),
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &count
}

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUploadFileData(t *testing.T) {
	srv, _ := uploadServer(t)

	ref, err := New(srv.URL).UploadFileData(context.Background(), "sales.csv", strings.NewReader("a,b\n1,2\n"))
	if err != nil {
		t.Fatalf("UploadFileData: %v", err)
	}
	if ref.Name != "sales.csv" {
		t.Fatalf("unexpected name %q", ref.Name)
	}
	if ref.Size != 8 {
		t.Fatalf("unexpected size %d", ref.Size)
	}
	if ref.ID == "" {
		t.Fatalf("expected a file id")
	}
}

func TestUploadFilesPreservesOrder(t *testing.T) {
	srv, count := uploadServer(t)
	dir := t.TempDir()
	paths := []string{
		writeTempFile(t, dir, "one.csv", "1"),
		writeTempFile(t, dir, "two.csv", "22"),
		writeTempFile(t, dir, "three.csv", "333"),
	}

	refs, err := New(srv.URL).UploadFiles(context.Background(), paths)
	if err != nil {
		t.Fatalf("UploadFiles: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("expected 3 refs, got %d", len(refs))
	}
	wantNames := []string{"one.csv", "two.csv", "three.csv"}
	for i, ref := range refs {
		if ref.Name != wantNames[i] {
			t.Fatalf("position %d: expected %q, got %q", i, wantNames[i], ref.Name)
		}
		if ref.Size != int64(i+1) {
			t.Fatalf("position %d: unexpected size %d", i, ref.Size)
		}
	}
	if got := count.Load(); got != 3 {
		t.Fatalf("expected 3 uploads, got %d", got)
	}
}

func TestUploadFilesFailsWhole(t *testing.T) {
	srv, _ := uploadServer(t)
	dir := t.TempDir()
	paths := []string{
		writeTempFile(t, dir, "ok.csv", "data"),
		filepath.Join(dir, "missing.csv"),
	}

	refs, err := New(srv.URL).UploadFiles(context.Background(), paths)
	if err == nil {
		t.Fatalf("expected an error for a missing file")
	}
	if refs != nil {
		t.Fatalf("a failed batch must return no refs, got %+v", refs)
	}
	if !strings.Contains(err.Error(), "missing.csv") {
		t.Fatalf("error must name the failing path: %v", err)
	}
}

func TestUploadFilesEmpty(t *testing.T) {
	refs, err := New("http://127.0.0.1:1").UploadFiles(context.Background(), nil)
	if err != nil || refs != nil {
		t.Fatalf("empty batch must be a no-op, got %v %v", refs, err)
	}
}
