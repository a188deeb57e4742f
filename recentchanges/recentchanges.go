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

// Package recentchanges maintains the cache directory's recentchanges/
// audit trail: a rolling window of the 5 most recent .changes files
// produced by "squeaker run", named by an ISO8601 timestamp. Grounded on
// the ISO8601 naming convention umoci uses for OCI timestamps
// (oci/config/generate/spec.go's ISO8601 constant), applied here to
// filenames instead of JSON fields.
package recentchanges

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
)

// ISO8601 is the timestamp layout used for recentchanges/ filenames, with
// the trailing "Z" literal appended by the caller (Go's RFC3339 already
// prints a "Z" for a UTC time.Time, but the spec's naming convention spells
// it as an explicit suffix on the stem).
const ISO8601 = "2006-01-02T15:04:05"

// MaxKept is how many .changes files survive a Record call; older ones are
// deleted.
const MaxKept = 5

// Record copies the .changes file at changesPath into
// <cacheRoot>/recentchanges/<timestamp>Z.changes and prunes older entries
// beyond MaxKept, where now is the timestamp to stamp the new entry with.
func Record(cacheRoot, changesPath string, now time.Time) error {
	dir := filepath.Join(cacheRoot, "recentchanges")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create recentchanges directory")
	}

	data, err := os.ReadFile(changesPath)
	if err != nil {
		return errors.Wrapf(err, "read %s", changesPath)
	}

	name := now.UTC().Format(ISO8601) + "Z.changes"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return errors.Wrap(err, "write recentchanges entry")
	}

	return prune(dir)
}

// prune keeps only the MaxKept most recently named entries in dir, relying
// on the ISO8601 naming scheme sorting chronologically.
func prune(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "list recentchanges directory")
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) <= MaxKept {
		return nil
	}
	for _, name := range names[:len(names)-MaxKept] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "prune %s", name)
		}
	}
	return nil
}
