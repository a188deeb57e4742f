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

package autodetect

import "testing"

func TestResolvePrefersExplicit(t *testing.T) {
	t.Setenv("SQUEAKER_VM", "/env/squeak")
	path, ok := Resolve("/explicit/squeak")
	if !ok || path != "/explicit/squeak" {
		t.Fatalf("Resolve = (%q, %v), want explicit path", path, ok)
	}
}

func TestResolveFallsBackToEnv(t *testing.T) {
	t.Setenv("SQUEAKER_VM", "/env/squeak")
	path, ok := Resolve("")
	if !ok || path != "/env/squeak" {
		t.Fatalf("Resolve = (%q, %v), want env path", path, ok)
	}
}

func TestResolveFallsBackToFind(t *testing.T) {
	t.Setenv("SQUEAKER_VM", "")
	t.Setenv("PATH", "")
	_, ok := Resolve("")
	if ok {
		t.Skip("a squeak binary happens to be on a conventional path in this environment")
	}
}
