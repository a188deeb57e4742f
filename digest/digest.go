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

// Package digest implements squeaker's digest scheme: deterministic
// SHA-512 derivation of stage digests from a stage-type/stage-key pair, and
// of aggregate digests from ordered lists of hex digests.
//
// All digests are lowercase hex-encoded SHA-512, with no algorithm prefix.
package digest

import (
	"encoding/hex"
	"io"
	"os"

	godigest "github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// blockSize is the minimum buffer size used when streaming a file through
// the hasher. The spec only requires "at least 512 KiB"; the exact value is
// not observable from outside the package.
const blockSize = 512 * 1024

// String returns the hex-encoded SHA-512 digest of the UTF-8 bytes of s.
func String(s string) string {
	return godigest.SHA512.FromString(s).Encoded()
}

// Bytes returns the hex-encoded SHA-512 digest of b.
func Bytes(b []byte) string {
	return godigest.SHA512.FromBytes(b).Encoded()
}

// File returns the hex-encoded SHA-512 digest of the file at path, streamed
// in blocks of at least 512 KiB.
func File(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open file for digest")
	}
	defer fh.Close()

	hasher := godigest.SHA512.Hash()
	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(hasher, fh, buf); err != nil {
		return "", errors.Wrap(err, "stream file for digest")
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Digests returns the hex-encoded SHA-512 digest of the concatenation of
// the hex-decoded bytes of each element of digests, in the given order.
// This is order-sensitive: it is not a digest of a set.
func Digests(digests []string) (string, error) {
	var buf []byte
	for _, d := range digests {
		raw, err := hex.DecodeString(d)
		if err != nil {
			return "", errors.Wrapf(err, "decode hex digest %q", d)
		}
		buf = append(buf, raw...)
	}
	return Bytes(buf), nil
}

// Stage returns the stage digest for the given stage-type string and
// stage-key string: SHA-512("<stageType>\n<stageKey>").
func Stage(stageType, key string) string {
	return String(stageType + "\n" + key)
}
