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

// Package progress implements squeaker's progress-reporting collaborator
// interface from the design notes' "log progress as inline carriage-return
// updates" re-architecture: the core calls Progress.Update, and the caller
// decides how (or whether) to render it. NoOp discards every update;
// Terminal renders a lipgloss-styled line with
// github.com/docker/go-units human-readable sizes, grounded on
// srerickson/ocfl-go's cmd/gocfl/cmd/progress.go.
package progress

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/docker/go-units"
)

// Progress is updated as a stage's underlying work makes headway; in this
// module only fetches report through it (see fetch.WithProgress). total and
// expected are byte counts; expected is 0 or negative if unknown. label
// names the stage being worked on.
type Progress interface {
	Update(total, expected int64, label string)
	// Done marks label as finished, leaving any rendered line in a
	// terminal state.
	Done(label string)
}

// NoOp discards every update, for callers where carriage-return redraws
// would corrupt output. The CLI itself always renders through Terminal.
var NoOp Progress = noOpProgress{}

type noOpProgress struct{}

func (noOpProgress) Update(total, expected int64, label string) {}
func (noOpProgress) Done(label string)                          {}

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	sizeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
)

// Terminal renders updates as a single carriage-return-redrawn line to w,
// finishing with a newline once Done is called.
type Terminal struct {
	w io.Writer
}

// NewTerminal returns a Terminal progress renderer writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

func (t *Terminal) Update(total, expected int64, label string) {
	sizeMsg := units.HumanSize(float64(total))
	if expected > 0 {
		sizeMsg = fmt.Sprintf("%s / %s", units.HumanSize(float64(total)), units.HumanSize(float64(expected)))
	}
	fmt.Fprintf(t.w, "\r%s %s", labelStyle.Render(label), sizeStyle.Render(sizeMsg))
}

func (t *Terminal) Done(label string) {
	fmt.Fprintf(t.w, "\r%s %s\n", labelStyle.Render(label), sizeStyle.Render("done"))
}
