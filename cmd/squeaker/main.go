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

// Command squeaker is a Docker-for-Smalltalk-images build tool: it derives
// customized Smalltalk images from a recipe of in-image expressions,
// content-addressing every intermediate stage so repeated builds are
// incremental.
package main

import (
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/urfave/cli"

	"github.com/tonyg/squeaker/internal/errs"
	"github.com/tonyg/squeaker/store"
)

const usage = "squeaker derives content-addressed Smalltalk images from a chunk recipe"

func main() {
	app := cli.NewApp()
	app.Name = "squeaker"
	app.Usage = usage
	app.Authors = []cli.Author{
		{Name: "The Squeaker Authors"},
	}

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "set log level to debug",
		},
		cli.StringFlag{
			Name:  "cache-root",
			Usage: "override the cache directory (default: $XDG_CACHE_HOME/squeaker or $HOME/.cache/squeaker)",
		},
	}

	app.Before = func(ctx *cli.Context) error {
		if ctx.GlobalBool("debug") {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	}

	app.Commands = []cli.Command{
		buildCommand,
		runCommand,
		gcCommand,
		tagsCommand,
		resolveTagCommand,
		dotCommand,
		createCommand,
		untagCommand,
		unstageCommand,
		printAutodetectCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "squeaker: %v\n", err)
		if kind := errs.KindOf(err); kind != "" {
			log.WithField("kind", kind).Debug("exiting with a kinded error")
		}
		os.Exit(1)
	}
}

// openStore resolves --cache-root (falling back to store.DefaultRoot) and
// opens the cache store.
func openStore(ctx *cli.Context) (*store.Store, error) {
	root := ctx.GlobalString("cache-root")
	if root == "" {
		var err error
		root, err = store.DefaultRoot()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(root)
}
