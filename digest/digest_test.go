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

package digest

import (
	"os"
	"path/filepath"
	"testing"
)

// TestStringStability is property P1: digest_stage (and the String/Bytes
// primitives it's built from) must be reproducible byte-for-byte across
// calls.
func TestStringStability(t *testing.T) {
	for _, s := range []string{"", "hello", "from: 'file:/tmp/base.zip'"} {
		a := String(s)
		b := String(s)
		if a != b {
			t.Fatalf("String(%q) not stable: %q vs %q", s, a, b)
		}
		if len(a) != 128 {
			t.Fatalf("String(%q) = %q, want 128 hex chars (SHA-512)", s, a)
		}
	}
}

func TestStageStability(t *testing.T) {
	a := Stage("url", "file:/tmp/base.zip")
	b := Stage("url", "file:/tmp/base.zip")
	if a != b {
		t.Fatalf("Stage not stable: %q vs %q", a, b)
	}
	if a == Stage("stage", "file:/tmp/base.zip") {
		t.Fatalf("Stage digest must depend on stage type, not just key")
	}
}

func TestDigestsOrderSensitive(t *testing.T) {
	a := String("a")
	b := String("b")

	ab, err := Digests([]string{a, b})
	if err != nil {
		t.Fatalf("Digests: %v", err)
	}
	ba, err := Digests([]string{b, a})
	if err != nil {
		t.Fatalf("Digests: %v", err)
	}
	if ab == ba {
		t.Fatalf("Digests([a,b]) == Digests([b,a]); want order sensitivity")
	}

	ab2, err := Digests([]string{a, b})
	if err != nil {
		t.Fatalf("Digests: %v", err)
	}
	if ab != ab2 {
		t.Fatalf("Digests not stable across calls")
	}
}

func TestDigestsRejectsBadHex(t *testing.T) {
	if _, err := Digests([]string{"not-hex"}); err == nil {
		t.Fatalf("expected error for non-hex digest input")
	}
}

func TestFileMatchesBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	content := []byte("some resource content\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	want := Bytes(content)
	if got != want {
		t.Fatalf("File() = %q, want %q", got, want)
	}
}

// TestFileLargerThanBlockSize exercises the ≥512KiB streaming path.
func TestFileLargerThanBlockSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	content := make([]byte, blockSize*2+17)
	for i := range content {
		content[i] = byte(i)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if want := Bytes(content); got != want {
		t.Fatalf("File() = %q, want %q", got, want)
	}
}
