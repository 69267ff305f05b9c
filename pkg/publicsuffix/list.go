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

// Package publicsuffix parses Public Suffix List files and finds the public
// suffix and the registrable domain of domain names.
//
// A List is immutable once parsed. It can be shared by any number of
// goroutines. To refresh the rules, parse a new List and swap it in,
// see Holder.
package publicsuffix

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

const (
	// OfficialURL is where the upstream list is published.
	OfficialURL = "https://publicsuffix.org/list/public_suffix_list.dat"

	privateSectionMarker = "===BEGIN PRIVATE DOMAINS==="
	commentPrefix        = "//"
	bomUTF8              = "\xEF\xBB\xBF"

	maxLineLen = 64 * 1024
)

// List is a parsed public suffix list.
type List struct {
	opts Options
	norm Normalizer

	// Index keys are normalized labels joined by ".", in the order
	// they appear in a domain name.
	exact      map[string]Type
	exceptions map[string]Type
	wildcards  map[string]Type // key is the rule without the leading "*."

	rules   []Rule
	skipped int
}

// Stats holds rule counters of a List.
type Stats struct {
	Rules      int `json:"rules"`
	Exact      int `json:"exact"`
	Wildcards  int `json:"wildcards"`
	Exceptions int `json:"exceptions"`
	ICANN      int `json:"icann"`
	Private    int `json:"private"`
	Skipped    int `json:"skipped"`
}

// ParseString is a shortcut of Parse.
func ParseString(s string, opts Options) (*List, error) {
	return Parse(strings.NewReader(s), opts)
}

// ParseBytes is a shortcut of Parse.
func ParseBytes(b []byte, opts Options) (*List, error) {
	return Parse(bytes.NewReader(b), opts)
}

// Parse reads a list in the PSL text format from r.
// Lines that are not valid rules are skipped (see Stats.Skipped). Parse
// only fails on read errors or if a label can't be normalized.
func Parse(r io.Reader, opts Options) (*List, error) {
	b := newListBuilder(opts)

	typ := TypeICANN
	lineCounter := 0
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLen)
	for scanner.Scan() {
		lineCounter++
		line := scanner.Text()
		if lineCounter == 1 {
			line = strings.TrimPrefix(line, bomUTF8)
		}
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if strings.HasPrefix(line, commentPrefix) {
			// There is no end marker we care about. Everything after
			// the private section marker is private.
			if strings.Contains(line, privateSectionMarker) {
				typ = TypePrivate
			}
			continue
		}

		// A rule ends at the first whitespace.
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			line = line[:i]
		}
		if err := b.add(line, typ); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineCounter, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read list: %w", err)
	}
	return b.build(), nil
}

type ruleKey struct {
	kind Kind
	key  string
}

type listBuilder struct {
	l   *List
	idx map[ruleKey]int // position in l.rules
}

func newListBuilder(opts Options) *listBuilder {
	return &listBuilder{
		l: &List{
			opts:       opts,
			norm:       NewNormalizer(opts),
			exact:      make(map[string]Type),
			exceptions: make(map[string]Type),
			wildcards:  make(map[string]Type),
		},
		idx: make(map[ruleKey]int),
	}
}

func (b *listBuilder) add(text string, typ Type) error {
	kind, body, ok := splitRule(text)
	if !ok {
		b.l.skipped++
		return nil
	}

	labels := strings.Split(body, ".")
	if kind == KindException && len(labels) < 2 {
		// An exception must leave at least one label as suffix.
		b.l.skipped++
		return nil
	}
	for i, label := range labels {
		if len(label) == 0 {
			b.l.skipped++
			return nil
		}
		k, err := b.l.norm.NormalizeLabel(label)
		if err != nil {
			return fmt.Errorf("rule %q: %w", text, err)
		}
		labels[i] = k
	}
	key := strings.Join(labels, ".")

	switch kind {
	case KindException:
		b.l.exceptions[key] = typ
	case KindWildcard:
		b.l.wildcards[key] = typ
	default:
		b.l.exact[key] = typ
	}

	r := Rule{Text: text, Key: key, Kind: kind, Type: typ}
	rk := ruleKey{kind: kind, key: key}
	if i, dup := b.idx[rk]; dup {
		b.l.rules[i] = r
		return nil
	}
	b.idx[rk] = len(b.l.rules)
	b.l.rules = append(b.l.rules, r)
	return nil
}

func (b *listBuilder) build() *List {
	return b.l
}

// splitRule splits the rule kind marker from the rule text.
// ok is false if text is not a rule this package can use.
func splitRule(text string) (kind Kind, body string, ok bool) {
	kind = KindExact
	body = text
	if strings.HasPrefix(body, "!") {
		kind = KindException
		body = body[1:]
	}
	if strings.HasPrefix(body, "*.") {
		if kind == KindException {
			return 0, "", false
		}
		kind = KindWildcard
		body = body[2:]
	}
	if len(body) == 0 || strings.ContainsAny(body, "*!") {
		return 0, "", false
	}
	return kind, body, true
}

// Options returns the normalization options of l.
func (l *List) Options() Options {
	return l.opts
}

// Len returns the number of indexed rules.
func (l *List) Len() int {
	return len(l.rules)
}

// Rules calls f for each rule in the order they were parsed, until f
// returns false.
func (l *List) Rules(f func(r Rule) bool) {
	for _, r := range l.rules {
		if !f(r) {
			return
		}
	}
}

// Stats returns rule counters of l.
func (l *List) Stats() Stats {
	s := Stats{
		Rules:      len(l.rules),
		Exact:      len(l.exact),
		Wildcards:  len(l.wildcards),
		Exceptions: len(l.exceptions),
		Skipped:    l.skipped,
	}
	for _, r := range l.rules {
		switch r.Type {
		case TypeICANN:
			s.ICANN++
		case TypePrivate:
			s.Private++
		}
	}
	return s
}
