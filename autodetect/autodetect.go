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

// Package autodetect implements squeaker's VM-location autodetection
// external collaborator: scanning PATH plus a short list of conventional
// install locations for a Squeak VM executable.
package autodetect

import (
	"os"
	"os/exec"
	"path/filepath"
)

// candidateNames are the executable names tried, most to least specific.
var candidateNames = []string{"squeak", "Squeak"}

// conventionalDirs are install locations checked beyond PATH, grounded on
// where distributions of Squeak/Pharo conventionally land a VM binary.
var conventionalDirs = []string{
	"/usr/local/bin",
	"/usr/bin",
	"/opt/squeak/bin",
	"/Applications/Squeak.app/Contents/MacOS",
}

// Find returns the first VM executable found on PATH, then in
// conventionalDirs, trying each candidate name in turn. ok is false if
// nothing was found.
func Find() (path string, ok bool) {
	for _, name := range candidateNames {
		if p, err := exec.LookPath(name); err == nil {
			return p, true
		}
	}
	for _, dir := range conventionalDirs {
		for _, name := range candidateNames {
			p := filepath.Join(dir, name)
			if info, err := os.Stat(p); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
				return p, true
			}
		}
	}
	return "", false
}

// Resolve returns explicit if non-empty, else the SQUEAKER_VM environment
// variable if set, else the result of Find. This is the precedence order
// the CLI's --vm flag, environment, and autodetection are combined in.
func Resolve(explicit string) (path string, ok bool) {
	if explicit != "" {
		return explicit, true
	}
	if env := os.Getenv("SQUEAKER_VM"); env != "" {
		return env, true
	}
	return Find()
}
