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

	"github.com/tonyg/squeaker/stage"
	"github.com/tonyg/squeaker/store"
)

// dotCommand renders the entire stage DAG as Graphviz dot source: every
// stage record is a node, tagged stages get a box of their own, and
// parent pointers become edges. Not named further in the external
// interfaces design beyond its existence, so the rendering shape here is
// a design choice, recorded in DESIGN.md.
var dotCommand = cli.Command{
	Name:      "dot",
	Usage:     "print the cached stage DAG as Graphviz dot source",
	ArgsUsage: " ",
	Action:    runDot,
}

func runDot(ctx *cli.Context) error {
	s, err := openStore(ctx)
	if err != nil {
		return err
	}

	stageIDs, err := s.List(store.Stages)
	if err != nil {
		return err
	}

	fmt.Println("digraph squeaker {")
	fmt.Println(`  rankdir="BT";`)
	for _, id := range stageIDs {
		rec, err := stage.Load(s, id)
		if err != nil {
			return err
		}
		label := fmt.Sprintf("%s\\n%s", rec.StageType, shortDigest(id))
		fmt.Printf("  %q [label=%q];\n", id, label)
		if rec.Parent != "" {
			fmt.Printf("  %q -> %q;\n", id, rec.Parent)
		}
	}

	tagNames, err := s.List(store.Tags)
	if err != nil {
		return err
	}
	for _, name := range tagNames {
		tag, err := stage.LoadTag(s, name)
		if err != nil {
			return err
		}
		fmt.Printf("  %q [shape=box,label=%q];\n", "tag:"+name, name)
		fmt.Printf("  %q -> %q;\n", "tag:"+name, tag.StageDigest)
	}
	fmt.Println("}")
	return nil
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
