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

// Package store implements squeaker's content-addressed cache store: three
// flat namespaces (images, stages, tags) rooted under a cache directory,
// grounded on the write-to-temp-then-rename discipline of
// github.com/opencontainers/umoci's oci/cas/dir.go directory CAS engine.
package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/tonyg/squeaker/digest"
	"github.com/tonyg/squeaker/internal/errs"
)

// Namespace identifies one of the store's three flat directories.
type Namespace string

// The three namespaces squeaker's cache store exposes.
const (
	Images Namespace = "images"
	Stages Namespace = "stages"
	Tags   Namespace = "tags"
)

// ErrAmbiguousPrefix is returned by ResolvePrefix when more than one entry
// in a namespace starts with the given prefix.
var ErrAmbiguousPrefix = errors.New("prefix matches more than one entry")

// Store is a content-addressed, three-namespace cache directory.
type Store struct {
	root string
	temp string
}

// DefaultRoot returns <XDG_CACHE_HOME>/squeaker, falling back to
// <HOME>/.cache/squeaker if XDG_CACHE_HOME is unset.
func DefaultRoot() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "squeaker"), nil
	}
	home := os.Getenv("HOME")
	if home == "" {
		return "", errors.New("neither XDG_CACHE_HOME nor HOME is set")
	}
	return filepath.Join(home, ".cache", "squeaker"), nil
}

// Open opens (creating if necessary) the cache store rooted at root.
func Open(root string) (*Store, error) {
	for _, ns := range []Namespace{Images, Stages, Tags} {
		if err := os.MkdirAll(filepath.Join(root, string(ns)), 0o755); err != nil {
			return nil, errors.Wrapf(err, "create namespace %s", ns)
		}
	}
	temp := filepath.Join(root, "tmp")
	if err := os.MkdirAll(temp, 0o755); err != nil {
		return nil, errors.Wrap(err, "create temp directory")
	}
	return &Store{root: root, temp: temp}, nil
}

// Root returns the cache store's root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) nsPath(ns Namespace, id string) string {
	return filepath.Join(s.root, string(ns), id)
}

// writeAtomic writes data to a temp file under the store and renames it
// into place, so a concurrent reader never observes a partial write. This
// mirrors dirEngine.PutBlob/PutReference in the teacher's CAS.
func (s *Store) writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "mkdir parent")
	}
	fh, err := os.CreateTemp(s.temp, "write-")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tempPath := fh.Name()
	if _, err := fh.Write(data); err != nil {
		fh.Close()
		os.Remove(tempPath)
		return errors.Wrap(err, "write temp file")
	}
	if err := fh.Close(); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(err, "close temp file")
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errors.Wrap(err, "rename into place")
	}
	return nil
}

// PutImageBlob writes data into the images namespace under its own
// SHA-512 digest, and returns that digest. At-most-once semantics: if the
// destination already exists it is left untouched (content-addressed, so
// any existing content at that path is equivalent).
func (s *Store) PutImageBlob(data []byte) (string, error) {
	dgst := digest.Bytes(data)
	path := s.nsPath(Images, dgst)
	if _, err := os.Stat(path); err == nil {
		return dgst, nil
	}
	if err := s.writeAtomic(path, data); err != nil {
		return "", errors.Wrap(err, "put image blob")
	}
	return dgst, nil
}

// HasImageBlob reports whether an image blob with the given digest exists.
func (s *Store) HasImageBlob(dgst string) bool {
	_, err := os.Stat(s.nsPath(Images, dgst))
	return err == nil
}

// ReadImageBlob reads an image blob's bytes. Returns os.ErrNotExist if
// absent.
func (s *Store) ReadImageBlob(dgst string) ([]byte, error) {
	return os.ReadFile(s.nsPath(Images, dgst))
}

// ReadStageRecord reads the raw JSON bytes of a stage record by its stage
// digest. Returns os.ErrNotExist if absent.
func (s *Store) ReadStageRecord(stageDigest string) ([]byte, error) {
	return os.ReadFile(s.nsPath(Stages, stageDigest))
}

// WriteStageRecord writes the raw JSON bytes of a stage record under its
// stage digest.
func (s *Store) WriteStageRecord(stageDigest string, data []byte) error {
	return s.writeAtomic(s.nsPath(Stages, stageDigest), data)
}

// DeleteStageRecord removes a stage record. Idempotent.
func (s *Store) DeleteStageRecord(stageDigest string) error {
	return s.delete(Stages, stageDigest)
}

// ReadTagRecord reads the raw JSON bytes of a tag record by name. Returns
// os.ErrNotExist if absent.
func (s *Store) ReadTagRecord(name string) ([]byte, error) {
	return os.ReadFile(s.nsPath(Tags, name))
}

// WriteTagRecord writes the raw JSON bytes of a tag record, overwriting any
// existing tag with the same name.
func (s *Store) WriteTagRecord(name string, data []byte) error {
	return s.writeAtomic(s.nsPath(Tags, name), data)
}

// DeleteTagRecord removes a tag. Idempotent.
func (s *Store) DeleteTagRecord(name string) error {
	return s.delete(Tags, name)
}

// DeleteImageBlob removes an image blob. Idempotent.
func (s *Store) DeleteImageBlob(dgst string) error {
	return s.delete(Images, dgst)
}

// delete is idempotent: a missing entry is not an error, matching
// dirEngine.DeleteBlob/DeleteReference's os.IsNotExist handling.
func (s *Store) delete(ns Namespace, id string) error {
	err := os.Remove(s.nsPath(ns, id))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete %s/%s", ns, id)
	}
	return nil
}

// List returns the sorted set of entry IDs stored in the given namespace.
func (s *Store) List(ns Namespace) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, string(ns)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "list namespace %s", ns)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// ResolvePrefix resolves a short, user-supplied prefix against a namespace.
// Returns ("", nil) if nothing matches, the single matching ID if exactly
// one matches, and errs.AmbiguousPrefix if more than one matches.
func (s *Store) ResolvePrefix(ns Namespace, prefix string) (string, error) {
	ids, err := s.List(ns)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", nil
	case 1:
		return matches[0], nil
	default:
		log.WithFields(log.Fields{
			"namespace": ns,
			"prefix":    prefix,
			"matches":   matches,
		}).Debug("ambiguous prefix")
		return "", errs.Wrapf(errs.AmbiguousPrefix, ErrAmbiguousPrefix, "prefix %q matches %d entries in %s", prefix, len(matches), ns)
	}
}
