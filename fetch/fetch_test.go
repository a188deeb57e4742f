/*
 * squeaker: a content-addressed Smalltalk image build tool
 * Copyright (C) 2026 The Squeaker Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tonyg/squeaker/internal/errs"
)

func TestFetchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.zip")
	if err := os.WriteFile(path, []byte("zip-bytes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	res, err := Default.Fetch(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(res.Data) != "zip-bytes" {
		t.Fatalf("Fetch data = %q", res.Data)
	}
}

func TestFetchFileMissing(t *testing.T) {
	_, err := Default.Fetch(context.Background(), "file:///no/such/path")
	if errs.KindOf(err) != errs.FetchFailed {
		t.Fatalf("err kind = %q, want FetchFailed", errs.KindOf(err))
	}
}

func TestFetchHTTPSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	res, err := Default.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(res.Data) != "hello" {
		t.Fatalf("Fetch data = %q", res.Data)
	}
}

func TestFetchHTTPNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Default.Fetch(context.Background(), srv.URL)
	if errs.KindOf(err) != errs.FetchFailed {
		t.Fatalf("err kind = %q, want FetchFailed", errs.KindOf(err))
	}
}

func TestFetchUnsupportedScheme(t *testing.T) {
	_, err := Default.Fetch(context.Background(), "ftp://example.com/x")
	if errs.KindOf(err) != errs.FetchFailed {
		t.Fatalf("err kind = %q, want FetchFailed", errs.KindOf(err))
	}
}
