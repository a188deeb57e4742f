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
	"fmt"

	"github.com/urfave/cli"

	"github.com/tonyg/squeaker/gc"
	"github.com/tonyg/squeaker/internal/errs"
)

var gcCommand = cli.Command{
	Name:      "gc",
	Usage:     "mark-and-sweep the cache, rooted at every tag",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		cli.BoolFlag{Name: "n", Usage: "dry run: report what would be deleted without deleting"},
		cli.BoolFlag{Name: "delete-unreferenced-urls", Usage: "only keep url-stage images reached by a tag walk"},
		cli.BoolFlag{Name: "delete-all-urls", Usage: "unmark every url-stage image regardless of reachability"},
		cli.BoolFlag{Name: "discard-all-intermediate", Usage: "keep only each tag's tip image blob"},
		cli.IntFlag{Name: "keep-intermediate", Usage: "keep this many parent hops of image blobs from each tag's tip (default: unlimited)", Value: -1},
	},
	Action: runGC,
}

func runGC(ctx *cli.Context) error {
	if ctx.Bool("delete-unreferenced-urls") && ctx.Bool("delete-all-urls") {
		return errs.New(errs.Internal, "--delete-unreferenced-urls and --delete-all-urls are mutually exclusive")
	}
	if ctx.Bool("discard-all-intermediate") && ctx.IsSet("keep-intermediate") {
		return errs.New(errs.Internal, "--discard-all-intermediate and --keep-intermediate are mutually exclusive")
	}

	urlPolicy := gc.URLPolicyKeep
	switch {
	case ctx.Bool("delete-unreferenced-urls"):
		urlPolicy = gc.URLPolicyDeleteUnreferenced
	case ctx.Bool("delete-all-urls"):
		urlPolicy = gc.URLPolicyDeleteAll
	}

	keepIntermediate := gc.KeepAllIntermediate
	switch {
	case ctx.Bool("discard-all-intermediate"):
		keepIntermediate = 0
	case ctx.IsSet("keep-intermediate"):
		keepIntermediate = ctx.Int("keep-intermediate")
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}

	m := &gc.Maintainer{Store: s}
	report, err := m.GC(keepIntermediate, urlPolicy, ctx.Bool("n"))
	if err != nil {
		return err
	}

	for _, id := range report.DeletedImages {
		fmt.Printf("deleted image %s\n", id)
	}
	for _, id := range report.DeletedStages {
		fmt.Printf("deleted stage %s\n", id)
	}
	return nil
}
