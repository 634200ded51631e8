package assets

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestTransport() *HTTPTransport {
	return NewHTTPTransport(5 * time.Second)
}

func TestHTTPTransportFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/media/artworks/42.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	body, err := newTestTransport().Fetch(context.Background(), srv.URL+"/media/artworks/42.jpg")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("body = %q", data)
	}
}

func TestHTTPTransportFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such file", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestTransport().Fetch(context.Background(), srv.URL+"/missing.jpg")
	if err == nil {
		t.Fatal("expected error for 404")
	}

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if se.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", se.Status)
	}
}

func TestHTTPTransportPostFile(t *testing.T) {
	var (
		gotCookie  string
		gotIsMain  string
		gotFile    []byte
		gotFileOK  bool
		gotHandler bool
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHandler = true
		gotCookie = r.Header.Get("Cookie")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotIsMain = r.FormValue("is_main_image")

		f, _, err := r.FormFile("image")
		if err == nil {
			gotFile, _ = io.ReadAll(f)
			f.Close()
			gotFileOK = true
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "42.jpg")
	if err := os.WriteFile(path, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	header := http.Header{}
	header.Set("Cookie", "access_token=secret")
	err := newTestTransport().PostFile(context.Background(), srv.URL+"/artworks/a1/images",
		header, map[string]string{"is_main_image": "true"}, "image", path)
	if err != nil {
		t.Fatalf("PostFile() error: %v", err)
	}

	if !gotHandler {
		t.Fatal("server never saw the request")
	}
	if gotCookie != "access_token=secret" {
		t.Errorf("Cookie = %q", gotCookie)
	}
	if gotIsMain != "true" {
		t.Errorf("is_main_image = %q", gotIsMain)
	}
	if !gotFileOK || string(gotFile) != "jpeg-bytes" {
		t.Errorf("file part = %q (ok=%t)", gotFile, gotFileOK)
	}
}

func TestHTTPTransportPostFileRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "42.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := newTestTransport().PostFile(context.Background(), srv.URL, http.Header{},
		map[string]string{"is_main_image": "false"}, "image", path)

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if se.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", se.Status)
	}
}

func TestHTTPTransportPostFileMissingLocalFile(t *testing.T) {
	err := newTestTransport().PostFile(context.Background(), "http://127.0.0.1:0", http.Header{},
		nil, "image", filepath.Join(t.TempDir(), "nope.jpg"))
	if err == nil {
		t.Fatal("expected error for missing local file")
	}
}
