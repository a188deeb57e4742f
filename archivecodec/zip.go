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

// Package archivecodec implements squeaker's Archive Codec external
// collaborator: image blobs are ZIP archives containing exactly one
// *.image file and a matching *.changes file with the same stem.
// Implemented on the standard library's archive/zip: no third-party
// ZIP-container library appears anywhere in the retrieval pack (see
// DESIGN.md — klauspost/compress and klauspost/pgzip, the teacher's own
// compression dependencies, implement gzip/deflate streams, not the ZIP
// container format itself).
package archivecodec

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/tonyg/squeaker/internal/errs"
)

// ImageEntryName and ChangesEntryName are the fixed names an image blob is
// extracted to in a build's working directory.
const (
	ImageEntryName   = "squeak.image"
	ChangesEntryName = "squeak.changes"
)

// Codec packs a pair of (image, changes) files into a content-addressable
// blob, and unpacks a blob back into that pair.
type Codec interface {
	// Pack builds a ZIP blob from the *.image and *.changes files at the
	// given paths.
	Pack(imagePath, changesPath string) ([]byte, error)
	// Unpack extracts blob's *.image and *.changes entries into destDir as
	// squeak.image and squeak.changes. Existing files at those paths are
	// left untouched (a warning is logged), matching the "don't clobber"
	// rule from the external interfaces design.
	Unpack(blob []byte, destDir string) error
}

// Default is squeaker's standard Codec.
var Default Codec = zipCodec{}

type zipCodec struct{}

func (zipCodec) Pack(imagePath, changesPath string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	stem := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))

	if err := addFile(w, imagePath, stem+".image"); err != nil {
		return nil, errs.Wrapf(errs.ArchiveMalformed, err, "pack %s", imagePath)
	}
	if err := addFile(w, changesPath, stem+".changes"); err != nil {
		return nil, errs.Wrapf(errs.ArchiveMalformed, err, "pack %s", changesPath)
	}

	if err := w.Close(); err != nil {
		return nil, errs.Wrap(errs.ArchiveMalformed, err, "finalize zip")
	}
	return buf.Bytes(), nil
}

func addFile(w *zip.Writer, srcPath, entryName string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return errors.Wrapf(err, "read %s", srcPath)
	}
	entry, err := w.Create(entryName)
	if err != nil {
		return errors.Wrapf(err, "create entry %s", entryName)
	}
	if _, err := entry.Write(data); err != nil {
		return errors.Wrapf(err, "write entry %s", entryName)
	}
	return nil
}

func (zipCodec) Unpack(blob []byte, destDir string) error {
	r, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return errs.Wrap(errs.ArchiveMalformed, err, "open zip")
	}

	var imageEntry, changesEntry *zip.File
	var stem string
	for _, f := range r.File {
		switch {
		case strings.HasSuffix(f.Name, ".image"):
			if imageEntry != nil {
				return errs.Newf(errs.ArchiveMalformed, "more than one *.image entry in archive")
			}
			imageEntry = f
			stem = strings.TrimSuffix(f.Name, ".image")
		case strings.HasSuffix(f.Name, ".changes"):
			changesEntry = f
		}
	}
	if imageEntry == nil {
		return errs.New(errs.ArchiveMalformed, "archive contains no *.image entry")
	}
	if changesEntry == nil || strings.TrimSuffix(changesEntry.Name, ".changes") != stem {
		return errs.Newf(errs.ArchiveMalformed, "archive has no *.changes entry matching stem %q", stem)
	}

	if err := extractEntry(imageEntry, filepath.Join(destDir, ImageEntryName)); err != nil {
		return err
	}
	if err := extractEntry(changesEntry, filepath.Join(destDir, ChangesEntryName)); err != nil {
		return err
	}
	return nil
}

func extractEntry(f *zip.File, destPath string) error {
	if _, err := os.Stat(destPath); err == nil {
		log.WithField("path", destPath).Warn("not overwriting existing file while unpacking image blob")
		return nil
	}

	rc, err := f.Open()
	if err != nil {
		return errs.Wrapf(errs.ArchiveMalformed, err, "open entry %s", f.Name)
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return errors.Wrapf(err, "create %s", destPath)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return errs.Wrapf(errs.ArchiveMalformed, err, "extract entry %s", f.Name)
	}
	return nil
}
