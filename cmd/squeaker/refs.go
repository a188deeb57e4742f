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

package main

import (
	"os"

	"github.com/tonyg/squeaker/internal/errs"
	"github.com/tonyg/squeaker/stage"
	"github.com/tonyg/squeaker/store"
)

// resolveImageRef resolves a user-supplied image reference per the
// tag/prefix rule from the external interfaces design: an exact tag name
// first, falling back to an unambiguous image_digest prefix.
func resolveImageRef(s *store.Store, ref string) (string, error) {
	tag, err := stage.LoadTag(s, ref)
	switch {
	case err == nil:
		return tag.ImageDigest, nil
	case !os.IsNotExist(err):
		return "", err
	}

	full, err := s.ResolvePrefix(store.Images, ref)
	if err != nil {
		return "", err
	}
	if full == "" {
		return "", errs.Newf(errs.CacheMiss, "no tag or image digest matches %q", ref)
	}
	return full, nil
}
