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

// Package recipe implements squeaker's recipe interpreter: the
// !-delimited chunk reader, Smalltalk literal parsing, and the chunk
// classifier that threads a running stage through the stage resolver.
package recipe

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// ChunkReader yields successive chunks from a !-delimited byte stream: an
// explicit iterator rather than exceptions-for-control-flow, terminating
// on end of input and tolerating a trailing unterminated non-empty chunk.
type ChunkReader struct {
	r    *bufio.Reader
	done bool
}

// NewChunkReader wraps r as a ChunkReader.
func NewChunkReader(r io.Reader) *ChunkReader {
	return &ChunkReader{r: bufio.NewReader(r)}
}

// Next returns the next chunk. ok is false once the stream is exhausted
// and every chunk (including a final unterminated one, if non-empty) has
// already been returned.
func (c *ChunkReader) Next() (chunk string, ok bool, err error) {
	if c.done {
		return "", false, nil
	}

	var buf bytes.Buffer
	sawAny := false
	for {
		b, rerr := c.r.ReadByte()
		if rerr != nil {
			if rerr != io.EOF {
				return "", false, errors.Wrap(rerr, "read chunk")
			}
			c.done = true
			if !sawAny {
				return "", false, nil
			}
			return buf.String(), true, nil
		}
		sawAny = true

		if b != '!' {
			buf.WriteByte(b)
			continue
		}

		next, perr := c.r.ReadByte()
		if perr == nil && next == '!' {
			buf.WriteByte('!')
			continue
		}
		if perr == nil {
			if uerr := c.r.UnreadByte(); uerr != nil {
				return "", false, errors.Wrap(uerr, "unread byte after chunk terminator")
			}
		} else if perr != io.EOF {
			return "", false, errors.Wrap(perr, "read chunk")
		}
		return buf.String(), true, nil
	}
}

// All reads every remaining chunk from c.
func (c *ChunkReader) All() ([]string, error) {
	var chunks []string
	for {
		chunk, ok, err := c.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return chunks, nil
		}
		chunks = append(chunks, chunk)
	}
}
