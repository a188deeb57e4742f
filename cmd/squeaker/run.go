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
	"os/exec"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli"

	"github.com/tonyg/squeaker/archivecodec"
	"github.com/tonyg/squeaker/autodetect"
	"github.com/tonyg/squeaker/internal/errs"
	"github.com/tonyg/squeaker/recentchanges"
)

// runCommand is the natural counterpart to build's scripted, captured
// invocation: it extracts a tagged or digest-referenced image and execs
// the VM against it interactively, with stdio inherited and no script
// injection.
var runCommand = cli.Command{
	Name:      "run",
	Usage:     "interactively run the Squeak VM against a cached image",
	ArgsUsage: "[--vm PATH] [--root] IMAGE ARGS...",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "vm", Usage: "path to the Squeak VM executable"},
		cli.BoolFlag{Name: "root", Usage: "keep the extraction working directory after the VM exits, instead of a scratch one that is removed"},
		cli.BoolTFlag{Name: "headless", Usage: "run the VM headless (default true)"},
	},
	Action: runRun,
}

func runRun(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) < 1 {
		return errs.New(errs.RecipeParse, "run requires an IMAGE argument")
	}
	imageRef, vmArgs := args[0], []string(args[1:])

	vmPath, ok := autodetect.Resolve(ctx.String("vm"))
	if !ok {
		return errs.New(errs.Internal, "no Squeak VM found; pass --vm or set SQUEAKER_VM")
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}

	imageDigest, err := resolveImageRef(s, imageRef)
	if err != nil {
		return err
	}
	blob, err := s.ReadImageBlob(imageDigest)
	if err != nil {
		return errs.Wrapf(errs.Internal, err, "read image blob %s", imageDigest)
	}

	var workDir string
	if ctx.Bool("root") {
		workDir = filepath.Join(s.Root(), "tmp", "run-"+imageDigest[:12])
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return err
		}
	} else {
		workDir, err = os.MkdirTemp("", "squeaker-run-")
		if err != nil {
			return err
		}
		defer os.RemoveAll(workDir)
	}

	if err := archivecodec.Default.Unpack(blob, workDir); err != nil {
		return err
	}

	cmd := exec.Command(vmPath, buildRunArgs(ctx.BoolT("headless"), workDir, vmArgs)...)
	cmd.Dir = workDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	log.WithFields(log.Fields{"vm": vmPath, "dir": workDir}).Debug("running vm interactively")
	if err := cmd.Run(); err != nil {
		return errs.Wrapf(errs.VMFailure, err, "vm %s exited with failure", vmPath)
	}

	changesPath := filepath.Join(workDir, archivecodec.ChangesEntryName)
	if _, statErr := os.Stat(changesPath); statErr == nil {
		if err := recentchanges.Record(s.Root(), changesPath, time.Now()); err != nil {
			log.WithError(err).Warn("failed to record recentchanges entry")
		}
	}
	return nil
}

func buildRunArgs(headless bool, workDir string, vmArgs []string) []string {
	var args []string
	if headless {
		args = append(args, "-headless")
	}
	args = append(args, archivecodec.ImageEntryName)
	args = append(args, vmArgs...)
	return args
}
