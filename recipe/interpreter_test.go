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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tonyg/squeaker/archivecodec"
	"github.com/tonyg/squeaker/fetch"
	"github.com/tonyg/squeaker/internal/errs"
	"github.com/tonyg/squeaker/stage"
	"github.com/tonyg/squeaker/store"
)

// fakeVM deterministically appends the chunk text to both tracked files,
// standing in for the real Smalltalk VM.
type fakeVM struct{}

func (fakeVM) Run(ctx context.Context, dir, vmPath string, headless bool, chunk string) error {
	for _, name := range []string{archivecodec.ImageEntryName, archivecodec.ChangesEntryName} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		data = append(data, []byte("|"+chunk)...)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func newTestInterpreter(t *testing.T) *Interpreter {
	t.Helper()
	s, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	return &Interpreter{
		Resolver: &stage.Resolver{
			Store:       s,
			Fetcher:     fetch.Default,
			Archive:     archivecodec.Default,
			VM:          fakeVM{},
			WorkDirBase: t.TempDir(),
		},
		VMPath: "/vm/squeak",
	}
}

// writeBaseZip builds a ZIP blob containing a.image = "IMG" and
// a.changes = "CHG" and returns its path.
func writeBaseZip(t *testing.T, dir string) string {
	t.Helper()
	src := t.TempDir()
	imagePath := filepath.Join(src, "a.image")
	changesPath := filepath.Join(src, "a.changes")
	if err := os.WriteFile(imagePath, []byte("IMG"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(changesPath, []byte("CHG"), 0o644); err != nil {
		t.Fatal(err)
	}
	blob, err := archivecodec.Default.Pack(imagePath, changesPath)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	zipPath := filepath.Join(dir, "base.zip")
	if err := os.WriteFile(zipPath, blob, 0o644); err != nil {
		t.Fatal(err)
	}
	return zipPath
}

func TestRunBasicRecipeProducesTaggedStage(t *testing.T) {
	it := newTestInterpreter(t)
	dir := t.TempDir()
	zipPath := writeBaseZip(t, dir)

	recipeText := "from: 'file://" + zipPath + "'!\n1 + 1!\n"

	rec, err := it.Run(context.Background(), strings.NewReader(recipeText), "mytag")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.StageType != stage.TypeChunk {
		t.Fatalf("final stage type = %q, want stage", rec.StageType)
	}

	resolved, err := stage.LoadTag(it.Resolver.Store, "mytag")
	if err != nil {
		t.Fatalf("LoadTag: %v", err)
	}
	if resolved.StageDigest != rec.StageDigest {
		t.Fatalf("tag points at %q, want %q", resolved.StageDigest, rec.StageDigest)
	}
}

func TestRunUntaggedWhenTagEmpty(t *testing.T) {
	it := newTestInterpreter(t)
	dir := t.TempDir()
	zipPath := writeBaseZip(t, dir)

	recipeText := "from: 'file://" + zipPath + "'!"
	if _, err := it.Run(context.Background(), strings.NewReader(recipeText), ""); err != nil {
		t.Fatalf("Run: %v", err)
	}

	tags, err := it.Resolver.Store.List(store.Tags)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 0 {
		t.Fatalf("tags = %v, want none written", tags)
	}
}

func TestRunFromSymbolLiteralLoadsExistingTag(t *testing.T) {
	it := newTestInterpreter(t)
	dir := t.TempDir()
	zipPath := writeBaseZip(t, dir)

	base, err := it.Run(context.Background(), strings.NewReader("from: 'file://"+zipPath+"'!"), "base")
	if err != nil {
		t.Fatalf("Run (base): %v", err)
	}

	derived, err := it.Run(context.Background(), strings.NewReader("from: #'base'!\n1 + 1!"), "")
	if err != nil {
		t.Fatalf("Run (derived): %v", err)
	}
	if derived.StageType != stage.TypeChunk {
		t.Fatalf("derived stage type = %q, want stage", derived.StageType)
	}
	view, ok := derived.AsChunk()
	if !ok || view.Parent != base.StageDigest {
		t.Fatalf("derived stage parent = %+v, want parent %q", view, base.StageDigest)
	}
}

func TestRunFromUnknownSymbolLiteralIsCacheMiss(t *testing.T) {
	it := newTestInterpreter(t)
	_, err := it.Run(context.Background(), strings.NewReader("from: #'no-such-tag'!"), "")
	if errs.KindOf(err) != errs.CacheMiss {
		t.Fatalf("err kind = %q, want CacheMiss", errs.KindOf(err))
	}
}

func TestRunResourceChunkAttachesFileFingerprint(t *testing.T) {
	it := newTestInterpreter(t)
	dir := t.TempDir()
	zipPath := writeBaseZip(t, dir)
	resourcePath := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(resourcePath, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	recipeText := "from: 'file://" + zipPath + "'!\nresource: '" + resourcePath + "'!"
	rec, err := it.Run(context.Background(), strings.NewReader(recipeText), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	view, ok := rec.AsResource()
	if !ok {
		t.Fatalf("final stage is not a resource stage: %+v", rec)
	}
	if !view.Present {
		t.Fatalf("resource stage did not record the file as present")
	}
}

func TestRunResourceBeforeFromIsRecipeParse(t *testing.T) {
	it := newTestInterpreter(t)
	_, err := it.Run(context.Background(), strings.NewReader("resource: '/tmp/x'!"), "")
	if errs.KindOf(err) != errs.RecipeParse {
		t.Fatalf("err kind = %q, want RecipeParse", errs.KindOf(err))
	}
}

func TestRunCommandChunkBeforeFromIsRecipeParse(t *testing.T) {
	it := newTestInterpreter(t)
	_, err := it.Run(context.Background(), strings.NewReader("1 + 1!"), "")
	if errs.KindOf(err) != errs.RecipeParse {
		t.Fatalf("err kind = %q, want RecipeParse", errs.KindOf(err))
	}
}

func TestRunMalformedFromLiteralIsRecipeParse(t *testing.T) {
	it := newTestInterpreter(t)
	_, err := it.Run(context.Background(), strings.NewReader("from: notquoted!"), "")
	if errs.KindOf(err) != errs.RecipeParse {
		t.Fatalf("err kind = %q, want RecipeParse", errs.KindOf(err))
	}
}

func TestRunEmptyRecipeIsRecipeParse(t *testing.T) {
	it := newTestInterpreter(t)
	_, err := it.Run(context.Background(), strings.NewReader("   \n  "), "")
	if errs.KindOf(err) != errs.RecipeParse {
		t.Fatalf("err kind = %q, want RecipeParse", errs.KindOf(err))
	}
}

func TestRunFileInOfMissingFileIsResourceMissing(t *testing.T) {
	it := newTestInterpreter(t)
	dir := t.TempDir()
	zipPath := writeBaseZip(t, dir)

	recipeText := "from: 'file://" + zipPath + "'!\nfileIn: '/no/such/file.st'!"
	_, err := it.Run(context.Background(), strings.NewReader(recipeText), "")
	if errs.KindOf(err) != errs.ResourceMissing {
		t.Fatalf("err kind = %q, want ResourceMissing", errs.KindOf(err))
	}
}

func TestRunFileInInstallsViaInstallerProtocol(t *testing.T) {
	it := newTestInterpreter(t)
	dir := t.TempDir()
	zipPath := writeBaseZip(t, dir)
	filePath := filepath.Join(dir, "patch.st")
	if err := os.WriteFile(filePath, []byte("Object subclass: #Foo"), 0o644); err != nil {
		t.Fatal(err)
	}

	recipeText := "from: 'file://" + zipPath + "'!\nfileIn: '" + filePath + "'!"
	rec, err := it.Run(context.Background(), strings.NewReader(recipeText), "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	view, ok := rec.AsChunk()
	if !ok {
		t.Fatalf("final stage is not a chunk stage: %+v", rec)
	}
	if !strings.Contains(view.Chunk, "Installer installFile: '"+filePath+"'") {
		t.Fatalf("fileIn: chunk text = %q, missing Installer protocol call", view.Chunk)
	}
}
