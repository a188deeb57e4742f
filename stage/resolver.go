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
	"context"
	"os"
	"path/filepath"

	"github.com/apex/log"

	"github.com/tonyg/squeaker/archivecodec"
	"github.com/tonyg/squeaker/digest"
	"github.com/tonyg/squeaker/fetch"
	"github.com/tonyg/squeaker/internal/errs"
	"github.com/tonyg/squeaker/store"
	"github.com/tonyg/squeaker/vmrunner"
)

// NoCacheSet selects which stage types a build forces to recompute even
// when a matching record is already cached. Only url and stage stages are
// maskable this way; resource stages always consult the cache.
type NoCacheSet struct {
	URL   bool
	Stage bool
}

// Resolver turns a parent stage plus an operation into a stage record,
// materializing the backing image blob only on a cache miss.
type Resolver struct {
	Store   *store.Store
	Fetcher fetch.Fetcher
	Archive archivecodec.Codec
	VM      vmrunner.Runner

	// VMHeadless is passed through to every VM invocation.
	VMHeadless bool
	// WorkDirBase is the directory fresh per-stage build working
	// directories are created under.
	WorkDirBase string

	NoCache NoCacheSet
}

// FetchURL resolves a url-type stage. stage_key is the URL itself, so a
// url stage's identity never depends on anything but the literal URL
// text.
func (r *Resolver) FetchURL(ctx context.Context, url string) (*Record, error) {
	stageKey := url
	stageDigest := digest.Stage(string(TypeURL), stageKey)

	if r.NoCache.URL {
		log.WithField("url", url).Debug("ignoring cached url stage")
	} else if rec, err := tryLoad(r.Store, stageDigest); err != nil {
		return nil, err
	} else if rec != nil {
		return rec, nil
	}

	imageDigest, err := r.fetchAndStoreURL(ctx, url)
	if err != nil {
		return nil, err
	}

	rec := NewURLRecord(stageDigest, stageKey, imageDigest, url)
	if err := Write(r.Store, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *Resolver) fetchAndStoreURL(ctx context.Context, url string) (string, error) {
	res, err := r.Fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	dgst, err := r.Store.PutImageBlob(res.Data)
	if err != nil {
		return "", errs.Wrapf(errs.Internal, err, "store fetched blob for %s", url)
	}
	return dgst, nil
}

// ApplyChunk resolves a stage-type (apply_chunk) stage. The tentative key
// computed from parent's current view may not match the key the record is
// finally stored under: if the cache misses and ensuring the parent's
// image present rebuilds it with a different image_digest, the key is
// recomputed from that rebuilt view before the new record is written, per
// the rebindable parent-stage slot design.
func (r *Resolver) ApplyChunk(ctx context.Context, parent *Record, chunk, vmPath string) (*Record, error) {
	_, _, stageDigest, err := chunkStageKey(parent, vmPath, chunk)
	if err != nil {
		return nil, err
	}

	if r.NoCache.Stage {
		log.WithField("stage_digest", stageDigest).Debug("ignoring cached stage")
	} else if rec, err := tryLoad(r.Store, stageDigest); err != nil {
		return nil, err
	} else if rec != nil {
		return rec, nil
	}

	parent, err = r.EnsureImagePresent(ctx, parent)
	if err != nil {
		return nil, err
	}
	digestInputs, stageKey, stageDigest, err := chunkStageKey(parent, vmPath, chunk)
	if err != nil {
		return nil, err
	}

	imageDigest, err := r.runChunk(ctx, parent, vmPath, chunk)
	if err != nil {
		return nil, err
	}

	rec := NewChunkRecord(stageDigest, stageKey, imageDigest, parent.StageDigest, chunk, vmPath, digestInputs)
	if err := Write(r.Store, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func chunkStageKey(parent *Record, vmPath, chunk string) (digestInputs []string, stageKey, stageDigest string, err error) {
	digestInputs = []string{parent.StageDigest, parent.ImageDigest, digest.String(vmPath), digest.String(chunk)}
	stageKey, err = digest.Digests(digestInputs)
	if err != nil {
		return nil, "", "", err
	}
	return digestInputs, stageKey, digest.Stage(string(TypeChunk), stageKey), nil
}

// DependOnResource resolves a resource-type stage: it attaches a
// resource's fingerprint to the stage graph without producing a new image
// blob of its own (the output image is the parent's, unchanged), so that
// a later apply_chunk consuming the same file invalidates correctly when
// the file's contents or presence change.
func (r *Resolver) DependOnResource(ctx context.Context, parent *Record, resourcePath string) (*Record, error) {
	resourceDigest, present, err := fingerprintResource(resourcePath)
	if err != nil {
		return nil, err
	}

	_, _, stageDigest, err := resourceStageKey(parent, resourceDigest, present)
	if err != nil {
		return nil, err
	}
	if rec, err := tryLoad(r.Store, stageDigest); err != nil {
		return nil, err
	} else if rec != nil {
		return rec, nil
	}

	parent, err = r.EnsureImagePresent(ctx, parent)
	if err != nil {
		return nil, err
	}
	digestInputs, stageKey, stageDigest, err := resourceStageKey(parent, resourceDigest, present)
	if err != nil {
		return nil, err
	}

	rec := NewResourceRecord(stageDigest, stageKey, parent.ImageDigest, parent.StageDigest, resourcePath, resourceDigest, digestInputs)
	if err := Write(r.Store, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func resourceStageKey(parent *Record, resourceDigest string, present bool) (digestInputs []string, stageKey, stageDigest string, err error) {
	digestInputs = []string{parent.StageDigest, parent.ImageDigest}
	if present {
		digestInputs = append(digestInputs, resourceDigest)
	}
	stageKey, err = digest.Digests(digestInputs)
	if err != nil {
		return nil, "", "", err
	}
	return digestInputs, stageKey, digest.Stage(string(TypeResource), stageKey), nil
}

func fingerprintResource(path string) (dgst string, present bool, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if os.IsNotExist(statErr) {
			return "", false, nil
		}
		return "", false, errs.Wrapf(errs.Internal, statErr, "stat resource %s", path)
	}
	dgst, err = digest.File(path)
	if err != nil {
		return "", false, err
	}
	return dgst, true, nil
}

// EnsureImagePresent guarantees rec's image_digest refers to a blob that
// exists, self-repairing by replaying rec's own operation when it
// doesn't. The returned record always has rec.StageDigest and
// rec.StageKey, but image_digest may differ from rec.ImageDigest if a
// rebuild happened.
func (r *Resolver) EnsureImagePresent(ctx context.Context, rec *Record) (*Record, error) {
	if r.Store.HasImageBlob(rec.ImageDigest) {
		return rec, nil
	}

	log.WithFields(log.Fields{
		"stage_digest": rec.StageDigest,
		"image_digest": rec.ImageDigest,
	}).Debug("stage image missing, self-repairing")

	if err := r.Store.DeleteStageRecord(rec.StageDigest); err != nil {
		return nil, err
	}

	switch rec.StageType {
	case TypeURL:
		return r.rebuildURL(ctx, rec)
	case TypeChunk:
		return r.rebuildChunk(ctx, rec)
	case TypeResource:
		return r.rebuildResource(ctx, rec)
	default:
		return nil, errs.Newf(errs.Internal, "unknown stage_type %q in stage record %s", rec.StageType, rec.StageDigest)
	}
}

func (r *Resolver) rebuildURL(ctx context.Context, rec *Record) (*Record, error) {
	view, _ := rec.AsURL()
	imageDigest, err := r.fetchAndStoreURL(ctx, view.URL)
	if err != nil {
		return nil, err
	}
	newRec := NewURLRecord(rec.StageDigest, rec.StageKey, imageDigest, view.URL)
	if err := Write(r.Store, newRec); err != nil {
		return nil, err
	}
	return newRec, nil
}

func (r *Resolver) rebuildChunk(ctx context.Context, rec *Record) (*Record, error) {
	view, _ := rec.AsChunk()
	parent, err := r.loadParent(view.Parent, rec.StageDigest)
	if err != nil {
		return nil, err
	}
	parent, err = r.EnsureImagePresent(ctx, parent)
	if err != nil {
		return nil, err
	}
	imageDigest, err := r.runChunk(ctx, parent, view.VM, view.Chunk)
	if err != nil {
		return nil, err
	}
	newRec := NewChunkRecord(rec.StageDigest, rec.StageKey, imageDigest, view.Parent, view.Chunk, view.VM, view.DigestInputs)
	if err := Write(r.Store, newRec); err != nil {
		return nil, err
	}
	return newRec, nil
}

func (r *Resolver) rebuildResource(ctx context.Context, rec *Record) (*Record, error) {
	view, _ := rec.AsResource()
	parent, err := r.loadParent(view.Parent, rec.StageDigest)
	if err != nil {
		return nil, err
	}
	parent, err = r.EnsureImagePresent(ctx, parent)
	if err != nil {
		return nil, err
	}
	newRec := NewResourceRecord(rec.StageDigest, rec.StageKey, parent.ImageDigest, view.Parent, view.ResourcePath, view.ResourceDigest, view.DigestInputs)
	if err := Write(r.Store, newRec); err != nil {
		return nil, err
	}
	return newRec, nil
}

func (r *Resolver) loadParent(parentDigest, forStage string) (*Record, error) {
	parent, err := Load(r.Store, parentDigest)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Newf(errs.CacheMiss, "parent stage %s for %s not found during rebuild", parentDigest, forStage)
		}
		return nil, err
	}
	return parent, nil
}

// runChunk extracts parent's materialized image into a fresh working
// directory, runs the VM against chunk, and repacks the resulting
// squeak.image/squeak.changes into a new blob in the store. Shared by
// ApplyChunk's if_absent path and rebuildChunk's replay.
func (r *Resolver) runChunk(ctx context.Context, parent *Record, vmPath, chunk string) (string, error) {
	data, err := r.Store.ReadImageBlob(parent.ImageDigest)
	if err != nil {
		return "", errs.Wrapf(errs.Internal, err, "read parent image blob %s", parent.ImageDigest)
	}

	workDir, cleanup, err := vmrunner.NewWorkDir(r.WorkDirBase)
	if err != nil {
		return "", err
	}
	defer cleanup()

	if err := r.Archive.Unpack(data, workDir); err != nil {
		return "", err
	}

	if err := r.VM.Run(ctx, workDir, vmPath, r.VMHeadless, chunk); err != nil {
		return "", err
	}

	blob, err := r.Archive.Pack(
		filepath.Join(workDir, archivecodec.ImageEntryName),
		filepath.Join(workDir, archivecodec.ChangesEntryName),
	)
	if err != nil {
		return "", err
	}

	imageDigest, err := r.Store.PutImageBlob(blob)
	if err != nil {
		return "", errs.Wrapf(errs.Internal, err, "store built image blob")
	}
	return imageDigest, nil
}
