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

package recipe

import (
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
)

// FuzzChunkReader feeds structured-random chunk text at ChunkReader: a
// handful of fragments joined with either a plain terminator or a doubled
// (escaped) bang, so the corpus actually exercises the escape path instead
// of mostly splitting on byte noise.
func FuzzChunkReader(f *testing.F) {
	f.Add([]byte("from: 'base.zip'!"))
	f.Add([]byte("!empty first chunk!"))
	f.Add([]byte("literal bang: ''a!!b''!unterminated tail"))
	f.Add([]byte(""))

	f.Fuzz(func(t *testing.T, data []byte) {
		fz := fuzz.NewConsumer(data)

		n, err := fz.GetInt()
		if err != nil {
			t.Skip("not enough data to pick a fragment count")
		}
		fragmentCount := n % 6

		var b strings.Builder
		for i := 0; i < fragmentCount; i++ {
			frag, err := fz.GetString()
			if err != nil {
				break
			}
			b.WriteString(frag)

			escaped, err := fz.GetBool()
			if err != nil {
				break
			}
			if escaped {
				b.WriteString("!!")
			} else {
				b.WriteString("!")
			}
		}

		chunks, err := NewChunkReader(strings.NewReader(b.String())).All()
		if err != nil {
			t.Fatalf("All() returned an error for input %q: %v", b.String(), err)
		}

		// Running the reader twice over identical input must be
		// deterministic.
		again, err := NewChunkReader(strings.NewReader(b.String())).All()
		if err != nil {
			t.Fatalf("second All() returned an error: %v", err)
		}
		if len(chunks) != len(again) {
			t.Fatalf("ChunkReader is non-deterministic: %#v vs %#v", chunks, again)
		}
		for i := range chunks {
			if chunks[i] != again[i] {
				t.Fatalf("ChunkReader is non-deterministic at chunk %d: %q vs %q", i, chunks[i], again[i])
			}
		}
	})
}
