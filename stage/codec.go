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

package stage

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/tonyg/squeaker/internal/errs"
	"github.com/tonyg/squeaker/store"
)

// Load reads and decodes the stage record with the given stage digest.
// Returns os.ErrNotExist if absent.
func Load(s *store.Store, stageDigest string) (*Record, error) {
	data, err := s.ReadStageRecord(stageDigest)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errs.Wrapf(errs.Internal, err, "decode stage record %s", stageDigest)
	}
	return &rec, nil
}

// Write encodes and writes rec, indented, under its own stage digest.
func Write(s *store.Store, rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errs.Wrapf(errs.Internal, err, "encode stage record")
	}
	if err := s.WriteStageRecord(rec.StageDigest, data); err != nil {
		return errors.Wrap(err, "write stage record")
	}
	return nil
}

// LoadTag reads and decodes the named tag. Returns os.ErrNotExist if
// absent.
func LoadTag(s *store.Store, name string) (*Tag, error) {
	data, err := s.ReadTagRecord(name)
	if err != nil {
		return nil, err
	}
	var tag Tag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, errs.Wrapf(errs.Internal, err, "decode tag record %s", name)
	}
	return &tag, nil
}

// WriteTag encodes and writes tag, indented, overwriting any existing tag
// with the same name.
func WriteTag(s *store.Store, tag *Tag) error {
	data, err := json.MarshalIndent(tag, "", "  ")
	if err != nil {
		return errs.Wrapf(errs.Internal, err, "encode tag record")
	}
	if err := s.WriteTagRecord(tag.Tag, data); err != nil {
		return errors.Wrap(err, "write tag record")
	}
	return nil
}

// tryLoad loads a stage record, treating a missing record as (nil, nil)
// rather than propagating os.ErrNotExist, since "not cached" is not an
// error at the call sites that use it (the resolver's cache-lookup step).
func tryLoad(s *store.Store, stageDigest string) (*Record, error) {
	rec, err := Load(s, stageDigest)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}
