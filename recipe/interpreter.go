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

package recipe

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/apex/log"

	"github.com/tonyg/squeaker/internal/errs"
	"github.com/tonyg/squeaker/stage"
)

// Interpreter threads a running "current stage" through a stage.Resolver
// as it classifies each chunk of a recipe by prefix.
type Interpreter struct {
	Resolver *stage.Resolver
	VMPath   string
}

// Run interprets every chunk read from r in order and, if tag is
// non-empty, tags the final stage once it has been materialized. It
// returns the final stage record.
func (it *Interpreter) Run(ctx context.Context, r io.Reader, tag string) (*stage.Record, error) {
	reader := NewChunkReader(r)
	var current *stage.Record

	for {
		chunk, ok, err := reader.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		text := strings.TrimSpace(chunk)
		if text == "" {
			continue
		}

		current, err = it.step(ctx, current, text)
		if err != nil {
			return nil, err
		}
	}

	if current == nil {
		return nil, errs.New(errs.RecipeParse, "recipe contained no stages")
	}

	current, err := it.Resolver.EnsureImagePresent(ctx, current)
	if err != nil {
		return nil, err
	}

	if tag != "" {
		if err := stage.WriteTag(it.Resolver.Store, &stage.Tag{
			Tag:         tag,
			StageDigest: current.StageDigest,
			ImageDigest: current.ImageDigest,
		}); err != nil {
			return nil, err
		}
	}

	log.WithField("image_digest", current.ImageDigest).Info("build complete")
	return current, nil
}

func (it *Interpreter) step(ctx context.Context, current *stage.Record, text string) (*stage.Record, error) {
	switch {
	case hasPrefix(text, "from:"):
		return it.stepFrom(ctx, arg(text, "from:"))
	case hasPrefix(text, "resource:"):
		return it.stepResource(ctx, current, arg(text, "resource:"))
	case hasPrefix(text, "fileIn:"):
		return it.stepFileIn(ctx, current, arg(text, "fileIn:"))
	default:
		if current == nil {
			return nil, errs.Newf(errs.RecipeParse, "command chunk before any from: chunk: %q", text)
		}
		return it.Resolver.ApplyChunk(ctx, current, text, it.VMPath)
	}
}

func hasPrefix(text, prefix string) bool {
	return strings.HasPrefix(text, prefix)
}

func arg(text, prefix string) string {
	return strings.TrimSpace(strings.TrimPrefix(text, prefix))
}

func (it *Interpreter) stepFrom(ctx context.Context, literal string) (*stage.Record, error) {
	if url, ok := ParseStringLiteral(literal); ok {
		return it.Resolver.FetchURL(ctx, url)
	}
	if name, ok := ParseSymbolLiteral(literal); ok {
		tag, err := stage.LoadTag(it.Resolver.Store, name)
		if err != nil {
			return nil, errs.Wrapf(errs.CacheMiss, err, "from: #%s: no such tag", name)
		}
		rec, err := stage.Load(it.Resolver.Store, tag.StageDigest)
		if err != nil {
			return nil, errs.Wrapf(errs.CacheMiss, err, "from: #%s: tag's stage record is gone", name)
		}
		return rec, nil
	}
	return nil, errs.Newf(errs.RecipeParse, "malformed from: literal: %q", literal)
}

func (it *Interpreter) stepResource(ctx context.Context, current *stage.Record, literal string) (*stage.Record, error) {
	path, ok := ParseStringLiteral(literal)
	if !ok {
		return nil, errs.Newf(errs.RecipeParse, "malformed resource: literal: %q", literal)
	}
	if current == nil {
		return nil, errs.New(errs.RecipeParse, "resource: chunk before any from: chunk")
	}
	return it.Resolver.DependOnResource(ctx, current, path)
}

func (it *Interpreter) stepFileIn(ctx context.Context, current *stage.Record, literal string) (*stage.Record, error) {
	path, ok := ParseStringLiteral(literal)
	if !ok {
		return nil, errs.Newf(errs.RecipeParse, "malformed fileIn: literal: %q", literal)
	}
	if current == nil {
		return nil, errs.New(errs.RecipeParse, "fileIn: chunk before any from: chunk")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errs.Wrapf(errs.ResourceMissing, err, "fileIn: of missing file %q", path)
	}

	withResource, err := it.Resolver.DependOnResource(ctx, current, path)
	if err != nil {
		return nil, err
	}
	return it.Resolver.ApplyChunk(ctx, withResource, "Installer installFile: "+literal, it.VMPath)
}
