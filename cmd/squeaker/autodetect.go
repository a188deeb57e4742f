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

	"github.com/tonyg/squeaker/autodetect"
	"github.com/tonyg/squeaker/internal/errs"
)

var printAutodetectCommand = cli.Command{
	Name:      "print-autodetect",
	Usage:     "print the Squeak VM path squeaker would use, without running anything",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "vm", Usage: "path to the Squeak VM executable"},
	},
	Action: runPrintAutodetect,
}

func runPrintAutodetect(ctx *cli.Context) error {
	vmPath, ok := autodetect.Resolve(ctx.String("vm"))
	if !ok {
		return errs.New(errs.Internal, "no Squeak VM found; pass --vm or set SQUEAKER_VM")
	}
	fmt.Println(vmPath)
	return nil
}
