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
	"path/filepath"

	"github.com/urfave/cli"

	"github.com/tonyg/squeaker/archivecodec"
	"github.com/tonyg/squeaker/digest"
	"github.com/tonyg/squeaker/internal/errs"
	"github.com/tonyg/squeaker/stage"
)

// createCommand adopts DIR's pre-existing squeak.image/squeak.changes pair
// into the cache without a network fetch: it packs the pair the same way build
// would after a url fetch, then labels the resulting image blob as a
// bootstrap url-type stage whose url field records where it came from,
// and tags it IMAGE.
var createCommand = cli.Command{
	Name:      "create",
	Usage:     "adopt DIR's squeak.image/squeak.changes pair as a tagged bootstrap stage",
	ArgsUsage: "IMAGE DIR",
	Action:    runCreate,
}

func runCreate(ctx *cli.Context) error {
	tagName := ctx.Args().Get(0)
	dir := ctx.Args().Get(1)
	if tagName == "" || dir == "" {
		return errs.New(errs.RecipeParse, "create requires IMAGE and DIR arguments")
	}

	imagePath := filepath.Join(dir, archivecodec.ImageEntryName)
	changesPath := filepath.Join(dir, archivecodec.ChangesEntryName)

	blob, err := archivecodec.Default.Pack(imagePath, changesPath)
	if err != nil {
		return err
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}

	imageDigest, err := s.PutImageBlob(blob)
	if err != nil {
		return err
	}

	key := "bootstrap:" + dir
	stageDigest := digest.Stage(string(stage.TypeURL), key)
	rec := stage.NewURLRecord(stageDigest, key, imageDigest, "file://"+dir)
	if err := stage.Write(s, rec); err != nil {
		return err
	}

	tag := &stage.Tag{Tag: tagName, StageDigest: stageDigest, ImageDigest: imageDigest}
	if err := stage.WriteTag(s, tag); err != nil {
		return err
	}

	return nil
}
