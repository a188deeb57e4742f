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

// Package vmrunner implements squeaker's VM Runner external collaborator:
// it spawns the Smalltalk VM as an opaque child process against a scripted
// payload and collects the image/changes files it produces.
//
// The VM always runs in a fresh working directory (never the process's
// current directory, per the "thread a working-directory handle
// explicitly" design note), created here with a github.com/google/uuid
// suffix for collision-free names, supplementing the teacher's
// ioutil.TempDir("", "umoci-...") convention with a guarantee strong enough
// for a long-lived, shared cache directory.
package vmrunner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tonyg/squeaker/internal/errs"
)

// Runner executes a Smalltalk chunk against the image/changes files already
// extracted into dir (named squeak.image/squeak.changes), leaving updated
// versions of those files in dir on success.
type Runner interface {
	Run(ctx context.Context, dir, vmPath string, headless bool, chunk string) error
}

// Default is squeaker's standard Runner: spawns vmPath as a child process.
var Default Runner = execRunner{}

// NewWorkDir creates a fresh, uniquely-named working directory under base
// for a single stage build, along with a cleanup function that removes it.
func NewWorkDir(base string) (dir string, cleanup func(), err error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", nil, errors.Wrap(err, "create temp base directory")
	}
	dir = filepath.Join(base, "build-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", nil, errors.Wrap(err, "create working directory")
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// scriptTemplate is the Smalltalk script injected into the VM. It redirects
// the Transcript's stdout to output.txt inside the working directory, runs
// the given chunk, and snapshots-and-quits. If the chunk signals an Error,
// the trap writes the message and backtrace to errors.txt and then
// snapshots-and-quits with the same call as the success path. The VM
// process's own stderr is not redirected; errors.txt holds only what the
// trap writes. Grounded on the "in-VM script has its own failure trap"
// behavior described in the error handling design.
const scriptTemplate = `| result |
Transcript redirectStdOutTo: (FileStream forceNewFileNamed: 'output.txt').
[
    result := [{{.Chunk}}] on: Error do: [:e |
        (FileStream forceNewFileNamed: 'errors.txt')
            nextPutAll: e messageText, String nl, e signalerContext backtrace;
            close.
        Smalltalk snapshot: true andQuit: true.
    ].
    Smalltalk snapshot: true andQuit: true.
] on: Error do: [:e | Smalltalk snapshot: true andQuit: true].
`

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir, vmPath string, headless bool, chunk string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return errors.Wrap(err, "resolve working directory")
	}

	if err := os.WriteFile(filepath.Join(absDir, "squeakerDirectory"), []byte(absDir), 0o644); err != nil {
		return errors.Wrap(err, "write squeakerDirectory marker")
	}

	tmpl, err := template.New("vmscript").Parse(scriptTemplate)
	if err != nil {
		return errors.Wrap(err, "parse vm script template")
	}
	var script strings.Builder
	if err := tmpl.Execute(&script, struct{ Chunk string }{chunk}); err != nil {
		return errors.Wrap(err, "render vm script")
	}

	scriptPath := filepath.Join(absDir, fmt.Sprintf("squeaker-%s.st", uuid.NewString()))
	if err := os.WriteFile(scriptPath, []byte(script.String()), 0o644); err != nil {
		return errors.Wrap(err, "write vm script")
	}

	args := []string{}
	if headless {
		args = append(args, "-headless")
	}
	args = append(args, archivecodecImageName, scriptPath)

	cmd := exec.CommandContext(ctx, vmPath, args...)
	cmd.Dir = absDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	log.WithFields(log.Fields{
		"vm":  vmPath,
		"dir": absDir,
	}).Debug("invoking vm")

	if err := cmd.Run(); err != nil {
		errLog, _ := os.ReadFile(filepath.Join(absDir, "errors.txt"))
		return errs.Wrapf(errs.VMFailure, err, "vm %s exited with failure: %s", vmPath, string(errLog))
	}
	return nil
}

// archivecodecImageName mirrors archivecodec.ImageEntryName; vmrunner keeps
// its own copy instead of importing the archivecodec package.
const archivecodecImageName = "squeak.image"
