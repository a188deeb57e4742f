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

package errs

import (
	"errors"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(FetchFailed, base, "fetch example.com")

	if KindOf(err) != FetchFailed {
		t.Fatalf("KindOf() = %q, want %q", KindOf(err), FetchFailed)
	}
	if !Is(err, FetchFailed) {
		t.Fatalf("Is(err, FetchFailed) = false")
	}
	if !errors.Is(err, base) {
		t.Fatalf("errors.Is should see through to the wrapped cause")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("plain")) != "" {
		t.Fatalf("expected empty kind for an unwrapped error")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(Internal, nil, "whatever") != nil {
		t.Fatalf("Wrap(nil) should return nil")
	}
}
