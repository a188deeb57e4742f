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

package recipe

import "strings"

// ParseStringLiteral parses a Smalltalk string literal '…' that occupies
// the entirety of s, with '' decoding to a literal single quote. ok is
// false if s is not exactly one well-formed string literal (no leading
// quote, unterminated, or trailing text after the closing quote).
func ParseStringLiteral(s string) (value string, ok bool) {
	if len(s) < 2 || s[0] != '\'' {
		return "", false
	}
	var buf strings.Builder
	i := 1
	for i < len(s) {
		if s[i] != '\'' {
			buf.WriteByte(s[i])
			i++
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			buf.WriteByte('\'')
			i += 2
			continue
		}
		if i+1 != len(s) {
			return "", false
		}
		return buf.String(), true
	}
	return "", false
}

// ParseSymbolLiteral parses a Smalltalk symbol literal #'…' that occupies
// the entirety of s: a leading # immediately followed by a string
// literal.
func ParseSymbolLiteral(s string) (value string, ok bool) {
	if len(s) < 1 || s[0] != '#' {
		return "", false
	}
	return ParseStringLiteral(s[1:])
}
