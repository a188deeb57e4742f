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

// Package gc implements squeaker's cache maintainer: mark-and-sweep
// garbage collection rooted at tags, plus the auxiliary tag/stage
// maintenance operations. Grounded on the mark-and-sweep shape of
// github.com/opencontainers/umoci's oci/casext/gc.go, adapted from "one
// index of manifests as the root set" to "every tag is a root, walked
// through parent pointers with a keep-intermediate depth."
package gc

import (
	"math"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/tonyg/squeaker/internal/errs"
	"github.com/tonyg/squeaker/stage"
	"github.com/tonyg/squeaker/store"
)

// URLPolicy selects how aggressively url-stage image blobs are swept, per
// the component design's three-way policy.
type URLPolicy int

const (
	// URLPolicyKeep is the default: every url stage's image is marked,
	// protecting downloads even when no tag currently depends on them.
	URLPolicyKeep URLPolicy = iota
	// URLPolicyDeleteUnreferenced only keeps a url stage's image if a tag
	// walk already reached it.
	URLPolicyDeleteUnreferenced
	// URLPolicyDeleteAll forcibly unmarks every url-stage image
	// regardless of reachability; stage records themselves still survive
	// if reachable via a tag walk.
	URLPolicyDeleteAll
)

// KeepAllIntermediate is the keep_intermediate depth that marks every
// intermediate image blob along a tag's walk, not just its tip.
const KeepAllIntermediate = math.MaxInt

// Report describes what a GC pass did (or, in dry-run mode, would do).
type Report struct {
	DeletedImages []string
	DeletedStages []string
}

// Maintainer implements the Cache Maintainer component: GC plus tag and
// stage bookkeeping, living outside the CLI so it is independently
// testable the way oci/casext is reusable outside cmd/umoci.
type Maintainer struct {
	Store *store.Store
}

// GC performs one mark-and-sweep pass. keepIntermediate bounds how many
// parent hops from each tag's tip still have their image blob marked
// (KeepAllIntermediate keeps every intermediate blob; 0 keeps only the
// tip). If dryRun, nothing is deleted; the Report still lists what would
// have been.
func (m *Maintainer) GC(keepIntermediate int, urlPolicy URLPolicy, dryRun bool) (Report, error) {
	stageIDs, err := m.Store.List(store.Stages)
	if err != nil {
		return Report{}, err
	}

	records := make(map[string]*stage.Record, len(stageIDs))
	for _, id := range stageIDs {
		rec, err := stage.Load(m.Store, id)
		if err != nil {
			return Report{}, errors.Wrapf(err, "load stage record %s", id)
		}
		records[id] = rec
	}

	tagNames, err := m.Store.List(store.Tags)
	if err != nil {
		return Report{}, err
	}

	markedStages := map[string]struct{}{}
	markedImages := map[string]struct{}{}

	for _, name := range tagNames {
		tag, err := stage.LoadTag(m.Store, name)
		if err != nil {
			return Report{}, errors.Wrapf(err, "load tag %s", name)
		}
		markedImages[tag.ImageDigest] = struct{}{}
		walkFromTag(records, tag.StageDigest, keepIntermediate, markedStages, markedImages)
	}

	applyURLPolicy(records, urlPolicy, markedStages, markedImages)

	var report Report
	imageIDs, err := m.Store.List(store.Images)
	if err != nil {
		return Report{}, err
	}
	for _, id := range imageIDs {
		if _, ok := markedImages[id]; ok {
			continue
		}
		report.DeletedImages = append(report.DeletedImages, id)
	}
	for _, id := range stageIDs {
		if _, ok := markedStages[id]; ok {
			continue
		}
		report.DeletedStages = append(report.DeletedStages, id)
	}

	if dryRun {
		log.WithFields(log.Fields{
			"images": len(report.DeletedImages),
			"stages": len(report.DeletedStages),
		}).Info("gc dry run")
		return report, nil
	}

	for _, id := range report.DeletedImages {
		if err := m.Store.DeleteImageBlob(id); err != nil {
			return report, errors.Wrapf(err, "delete image blob %s", id)
		}
	}
	for _, id := range report.DeletedStages {
		if err := m.Store.DeleteStageRecord(id); err != nil {
			return report, errors.Wrapf(err, "delete stage record %s", id)
		}
	}
	log.WithFields(log.Fields{
		"images": len(report.DeletedImages),
		"stages": len(report.DeletedStages),
	}).Debug("garbage collected")
	return report, nil
}

// walkFromTag walks the parent chain starting at stageDigest, marking
// every stage_digest along the way and marking each stage's image only
// while depth <= keepIntermediate. A dangling parent (missing from
// records) ends the walk at that point rather than failing the whole GC
// pass: a stale reference is recoverable by GC even though it is fatal
// during rebuild.
func walkFromTag(records map[string]*stage.Record, stageDigest string, keepIntermediate int, markedStages, markedImages map[string]struct{}) {
	depth := 0
	for stageDigest != "" {
		rec, ok := records[stageDigest]
		if !ok {
			log.WithField("stage_digest", stageDigest).Debug("gc: dangling parent reference, stopping walk")
			return
		}
		markedStages[stageDigest] = struct{}{}
		if depth <= keepIntermediate {
			markedImages[rec.ImageDigest] = struct{}{}
		}
		stageDigest = rec.Parent
		depth++
	}
}

// applyURLPolicy adjusts markedImages for url-type stages per urlPolicy,
// after the tag walk has already seeded markedImages/markedStages.
func applyURLPolicy(records map[string]*stage.Record, urlPolicy URLPolicy, markedStages, markedImages map[string]struct{}) {
	switch urlPolicy {
	case URLPolicyKeep:
		for digest, rec := range records {
			if rec.StageType == stage.TypeURL {
				markedStages[digest] = struct{}{}
				markedImages[rec.ImageDigest] = struct{}{}
			}
		}
	case URLPolicyDeleteUnreferenced:
		// A url stage a tag walk reached keeps its image even when it lies
		// deeper than keepIntermediate; unreached url stages get nothing.
		for digest, rec := range records {
			if rec.StageType != stage.TypeURL {
				continue
			}
			if _, ok := markedStages[digest]; ok {
				markedImages[rec.ImageDigest] = struct{}{}
			}
		}
	case URLPolicyDeleteAll:
		for _, rec := range records {
			if rec.StageType == stage.TypeURL {
				delete(markedImages, rec.ImageDigest)
			}
		}
	}
}

// Untag removes the named tags. Idempotent: a missing tag is not an
// error.
func (m *Maintainer) Untag(names ...string) error {
	for _, name := range names {
		if err := m.Store.DeleteTagRecord(name); err != nil {
			return errors.Wrapf(err, "untag %s", name)
		}
	}
	return nil
}

// Unstage resolves each prefix against the stages namespace and removes
// the unambiguous match, returning the resolved digests in the same
// order. An unresolvable or ambiguous prefix aborts and returns its
// error.
func (m *Maintainer) Unstage(prefixes ...string) ([]string, error) {
	resolved := make([]string, 0, len(prefixes))
	for _, prefix := range prefixes {
		full, err := m.Store.ResolvePrefix(store.Stages, prefix)
		if err != nil {
			return resolved, err
		}
		if full == "" {
			return resolved, errs.Newf(errs.CacheMiss, "no stage matches prefix %q", prefix)
		}
		if err := m.Store.DeleteStageRecord(full); err != nil {
			return resolved, errors.Wrapf(err, "delete stage %s", full)
		}
		resolved = append(resolved, full)
	}
	return resolved, nil
}

// Tags returns the sorted set of tag names.
func (m *Maintainer) Tags() ([]string, error) {
	return m.Store.List(store.Tags)
}

// ResolveTag returns the image_digest a tag currently points to.
func (m *Maintainer) ResolveTag(name string) (string, error) {
	tag, err := stage.LoadTag(m.Store, name)
	if err != nil {
		return "", errs.Wrapf(errs.CacheMiss, err, "resolve tag %s", name)
	}
	return tag.ImageDigest, nil
}
