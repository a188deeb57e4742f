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

// Package fetch implements squeaker's URL Fetcher external collaborator: a
// byte-streaming source over http(s):// and file:// URLs, with an optional
// content-length hint. Grounded on the fact that no HTTP client library
// beyond the standard library's net/http appears anywhere in the retrieval
// pack (umoci, distribution, and the rest all reach for net/http directly
// for transport); see DESIGN.md.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/pkg/errors"

	"github.com/tonyg/squeaker/internal/errs"
)

// Result is the outcome of a successful fetch.
type Result struct {
	// Data is the full byte content fetched.
	Data []byte
	// ContentLength is the source's content-length hint, or -1 if the
	// source didn't provide one.
	ContentLength int64
}

// Fetcher streams the body of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Result, error)
}

// Reporter is the progress.Progress surface fetch depends on, kept narrow
// here so this package doesn't need to import the progress package's
// lipgloss/go-units dependencies.
type Reporter interface {
	Update(total, expected int64, label string)
	Done(label string)
}

// WithProgress wraps next, reporting the fetched byte count to r as label
// once the fetch completes (the underlying Fetcher interface reads the
// whole body before returning, so there is a single update followed by
// Done, not a running one).
func WithProgress(next Fetcher, r Reporter, label string) Fetcher {
	return progressFetcher{next: next, r: r, label: label}
}

type progressFetcher struct {
	next  Fetcher
	r     Reporter
	label string
}

func (p progressFetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	res, err := p.next.Fetch(ctx, rawURL)
	if err != nil {
		return res, err
	}
	p.r.Update(int64(len(res.Data)), res.ContentLength, p.label)
	p.r.Done(p.label)
	return res, nil
}

// Default is squeaker's standard Fetcher: net/http for http(s)://, direct
// file reads for file://.
var Default Fetcher = httpFileFetcher{}

type httpFileFetcher struct{}

func (httpFileFetcher) Fetch(ctx context.Context, rawURL string) (Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, errs.Wrapf(errs.FetchFailed, err, "parse url %q", rawURL)
	}

	switch u.Scheme {
	case "file":
		return fetchFile(u.Path)
	case "http", "https":
		return fetchHTTP(ctx, rawURL)
	default:
		return Result{}, errs.Newf(errs.FetchFailed, "unsupported URL scheme %q", u.Scheme)
	}
}

func fetchFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, errs.Wrapf(errs.FetchFailed, err, "read file url %q", path)
	}
	return Result{Data: data, ContentLength: int64(len(data))}, nil
}

func fetchHTTP(ctx context.Context, rawURL string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, errs.Wrapf(errs.FetchFailed, err, "build request for %q", rawURL)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Result{}, errs.Wrapf(errs.FetchFailed, err, "fetch %q", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, errs.Newf(errs.FetchFailed, "fetch %q: status %d, headers %v", rawURL, resp.StatusCode, resp.Header)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, errors.Wrapf(err, "read body of %q", rawURL)
	}

	return Result{Data: data, ContentLength: resp.ContentLength}, nil
}
