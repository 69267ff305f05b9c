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
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/text/cases"
)

// Options selects how labels are normalized before they are compared.
// The same Options are used for the rule text and for every lookup on
// the resulting List.
type Options struct {
	// UnicodeFold enables full Unicode case folding. Default is
	// ASCII-only lowercasing.
	UnicodeFold bool `yaml:"unicode_fold"`

	// Punycode converts non-ASCII labels to their ASCII compatible
	// encoding ("xn--...").
	Punycode bool `yaml:"punycode"`
}

// Normalizer converts a single label to its comparison key.
type Normalizer interface {
	NormalizeLabel(label string) (string, error)
}

// NewNormalizer returns the Normalizer for opts.
func NewNormalizer(opts Options) Normalizer {
	return labelNormalizer{fold: opts.UnicodeFold, punycode: opts.Punycode}
}

// maxLabelLen is the max length of a dns label in its ASCII form.
const maxLabelLen = 63

type labelNormalizer struct {
	fold     bool
	punycode bool
}

// cases.Caser keeps transform state, it must not be shared between goroutines.
var foldPool = sync.Pool{
	New: func() any {
		c := cases.Fold()
		return &c
	},
}

func (n labelNormalizer) NormalizeLabel(label string) (string, error) {
	if isASCII(label) {
		return asciiLower(label), nil
	}

	if n.fold {
		c := foldPool.Get().(*cases.Caser)
		label = c.String(label)
		foldPool.Put(c)
	} else {
		label = asciiLower(label)
	}

	if n.punycode {
		a, err := idna.Lookup.ToASCII(label)
		if err != nil {
			return "", fmt.Errorf("%w: label %q: %w", ErrEncoding, label, err)
		}
		// IDNA maps full width and ideographic full stops to ".". A label
		// must stay a single label, or the offsets of the name won't
		// match its key.
		switch {
		case len(a) == 0:
			return "", fmt.Errorf("%w: label %q is empty after transcoding", ErrEncoding, label)
		case len(a) > maxLabelLen:
			return "", fmt.Errorf("%w: label %q is too long after transcoding", ErrEncoding, label)
		case strings.IndexByte(a, '.') >= 0:
			return "", fmt.Errorf("%w: label %q contains a label separator", ErrEncoding, label)
		}
		return a, nil
	}
	return label, nil
}

// asciiLower lowercases ASCII letters only. s is returned as is
// if it has no upper case letters.
func asciiLower(s string) string {
	i := 0
	for ; i < len(s); i++ {
		if c := s[i]; c >= 'A' && c <= 'Z' {
			break
		}
	}
	if i == len(s) {
		return s
	}

	b := []byte(s)
	for ; i < len(b); i++ {
		if c := b[i]; c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// hasUpperASCII reports whether s contains 'A'-'Z'.
func hasUpperASCII(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0
}
