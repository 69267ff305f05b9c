/*
 * Copyright (C) 2020-2022, IrineSistiana
 *
 * This file is part of pslookup.
 *
 * pslookup is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * pslookup is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package publicsuffix

import (
	"strings"
)

// match is the position of the winning rule in a name.
type match struct {
	// offsets[i] is the byte offset of label i in the original name.
	// Only matchable labels are recorded.
	offsets []int
	label   int // index of the first suffix label
	typ     Type
}

func (m *match) suffixStart() int {
	return m.offsets[m.label]
}

// domainStart returns -1 if no label precedes the suffix.
func (m *match) domainStart() int {
	if m.label == 0 {
		return -1
	}
	return m.offsets[m.label-1]
}

// labelBufLen covers almost all real names without a heap allocation.
const labelBufLen = 16

// find runs the longest-match-first search of name over the three indices.
func (l *List) find(name string, offBuf, keyOffBuf []int) (match, error) {
	matchable := strings.TrimSuffix(name, ".")
	if len(matchable) == 0 {
		return match{}, ErrEmptyInput
	}

	offsets := splitOffsets(matchable, offBuf[:0])
	key, keyOffsets, err := l.normalizeName(matchable, offsets, keyOffBuf[:0])
	if err != nil {
		return match{}, err
	}

	n := len(offsets)
	for i := 0; i < n; i++ {
		candidate := key[keyOffsets[i]:]
		// Exception keys have two labels at least, so a hit always
		// leaves i+1 < n.
		if typ, ok := l.exceptions[candidate]; ok && i+1 < n {
			return match{offsets: offsets, label: i + 1, typ: typ}, nil
		}
		if typ, ok := l.exact[candidate]; ok {
			return match{offsets: offsets, label: i, typ: typ}, nil
		}
		if i < n-1 {
			if typ, ok := l.wildcards[key[keyOffsets[i+1]:]]; ok {
				return match{offsets: offsets, label: i, typ: typ}, nil
			}
		}
	}
	return match{offsets: offsets, label: n - 1, typ: TypeUnknown}, nil
}

// splitOffsets appends the start offset of every dot separated label in s.
func splitOffsets(s string, dst []int) []int {
	dst = append(dst, 0)
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			dst = append(dst, i+1)
		}
	}
	return dst
}

// normalizeName returns the normalized form of name, labels joined by ".",
// and the offset of each label in it.
func (l *List) normalizeName(name string, offsets []int, dst []int) (string, []int, error) {
	// Names that are already lower case ASCII are their own key.
	if isASCII(name) && !hasUpperASCII(name) {
		return name, offsets, nil
	}

	var sb strings.Builder
	sb.Grow(len(name))
	for i, off := range offsets {
		end := len(name)
		if i+1 < len(offsets) {
			end = offsets[i+1] - 1
		}
		k, err := l.norm.NormalizeLabel(name[off:end])
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			sb.WriteByte('.')
		}
		dst = append(dst, sb.Len())
		sb.WriteString(k)
	}
	return sb.String(), dst, nil
}
