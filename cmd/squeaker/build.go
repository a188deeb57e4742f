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
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli"

	"github.com/tonyg/squeaker/archivecodec"
	"github.com/tonyg/squeaker/autodetect"
	"github.com/tonyg/squeaker/fetch"
	"github.com/tonyg/squeaker/internal/errs"
	"github.com/tonyg/squeaker/progress"
	"github.com/tonyg/squeaker/recipe"
	"github.com/tonyg/squeaker/stage"
	"github.com/tonyg/squeaker/vmrunner"
)

// defaultRecipeFile is the chunk file name looked for under DIR when -f is
// not given.
const defaultRecipeFile = "recipe.st"

var buildCommand = cli.Command{
	Name:      "build",
	Usage:     "derive a Smalltalk image from a recipe",
	ArgsUsage: "[-f FILE] [-t TAG] DIR",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "f", Usage: "recipe file, relative to DIR (default: recipe.st)"},
		cli.StringFlag{Name: "t", Usage: "tag name to assign the final stage"},
		cli.BoolFlag{Name: "no-cache-urls", Usage: "ignore cached url stages and refetch"},
		cli.BoolFlag{Name: "no-cache-stages", Usage: "ignore cached stage-type records and rebuild"},
		cli.BoolTFlag{Name: "headless", Usage: "run the VM headless (default true)"},
		cli.StringFlag{Name: "vm", Usage: "path to the Squeak VM executable"},
	},
	Action: runBuild,
}

func runBuild(ctx *cli.Context) error {
	dir := ctx.Args().First()
	if dir == "" {
		return errs.New(errs.RecipeParse, "build requires a DIR argument")
	}

	recipeFile := ctx.String("f")
	if recipeFile == "" {
		recipeFile = defaultRecipeFile
	}
	recipePath := filepath.Join(dir, recipeFile)

	vmPath, ok := autodetect.Resolve(ctx.String("vm"))
	if !ok {
		return errs.New(errs.Internal, "no Squeak VM found; pass --vm or set SQUEAKER_VM")
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}

	resolver := &stage.Resolver{
		Store:       s,
		Fetcher:     fetch.WithProgress(fetch.Default, progress.NewTerminal(os.Stderr), "fetch"),
		Archive:     archivecodec.Default,
		VM:          vmrunner.Default,
		VMHeadless:  ctx.BoolT("headless"),
		WorkDirBase: filepath.Join(s.Root(), "tmp", "builds"),
		NoCache: stage.NoCacheSet{
			URL:   ctx.Bool("no-cache-urls"),
			Stage: ctx.Bool("no-cache-stages"),
		},
	}

	fh, err := os.Open(recipePath)
	if err != nil {
		return errs.Wrapf(errs.RecipeParse, err, "open recipe %s", recipePath)
	}
	defer fh.Close()

	it := &recipe.Interpreter{Resolver: resolver, VMPath: vmPath}
	final, err := it.Run(context.Background(), fh, ctx.String("t"))
	if err != nil {
		return err
	}

	fmt.Println(final.ImageDigest)
	return nil
}
