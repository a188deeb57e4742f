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

var tagsCommand = cli.Command{
	Name:      "tags",
	Usage:     "list every tag name",
	ArgsUsage: " ",
	Action:    runTags,
}

func runTags(ctx *cli.Context) error {
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	names, err := (&gc.Maintainer{Store: s}).Tags()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

var resolveTagCommand = cli.Command{
	Name:      "resolve-tag",
	Usage:     "print the image_digest a tag points to",
	ArgsUsage: "TAG",
	Action:    runResolveTag,
}

func runResolveTag(ctx *cli.Context) error {
	name := ctx.Args().First()
	if name == "" {
		return errs.New(errs.RecipeParse, "resolve-tag requires a TAG argument")
	}
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	imageDigest, err := (&gc.Maintainer{Store: s}).ResolveTag(name)
	if err != nil {
		return err
	}
	fmt.Println(imageDigest)
	return nil
}

var untagCommand = cli.Command{
	Name:      "untag",
	Usage:     "unlink one or more tags",
	ArgsUsage: "TAG...",
	Action:    runUntag,
}

func runUntag(ctx *cli.Context) error {
	names := []string(ctx.Args())
	if len(names) == 0 {
		return errs.New(errs.RecipeParse, "untag requires at least one TAG argument")
	}
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	return (&gc.Maintainer{Store: s}).Untag(names...)
}

var unstageCommand = cli.Command{
	Name:      "unstage",
	Usage:     "unlink one or more stage records by digest prefix",
	ArgsUsage: "DIGEST...",
	Action:    runUnstage,
}

func runUnstage(ctx *cli.Context) error {
	prefixes := []string(ctx.Args())
	if len(prefixes) == 0 {
		return errs.New(errs.RecipeParse, "unstage requires at least one DIGEST argument")
	}
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	resolved, err := (&gc.Maintainer{Store: s}).Unstage(prefixes...)
	for _, digest := range resolved {
		fmt.Println(digest)
	}
	return err
}
