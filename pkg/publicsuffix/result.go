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

// Suffix is the public suffix of a name. It refers to the name passed
// to List.Suffix, nothing is copied.
type Suffix struct {
	name  string
	start int
	typ   Type
}

func (s Suffix) String() string {
	return s.name[s.start:]
}

// Type returns the section of the rule that matched, TypeUnknown if the
// suffix comes from the implicit "*" rule.
func (s Suffix) Type() Type {
	return s.typ
}

// IsKnown reports whether a rule of the list matched.
func (s Suffix) IsKnown() bool {
	return s.typ != TypeUnknown
}

func (s Suffix) IsICANN() bool {
	return s.typ == TypeICANN
}

func (s Suffix) IsPrivate() bool {
	return s.typ == TypePrivate
}

// Equal reports whether the suffix is exactly b, byte by byte.
func (s Suffix) Equal(b string) bool {
	return s.String() == b
}

// Compare compares the suffix with b lexicographically.
func (s Suffix) Compare(b string) int {
	return strings.Compare(s.String(), b)
}

// Domain is the registrable domain of a name, the public suffix plus
// one label.
type Domain struct {
	name        string
	start       int
	suffixStart int
	typ         Type
}

func (d Domain) String() string {
	return d.name[d.start:]
}

func (d Domain) Type() Type {
	return d.typ
}

// Suffix returns the public suffix part of d.
func (d Domain) Suffix() Suffix {
	return Suffix{name: d.name, start: d.suffixStart, typ: d.typ}
}

// Suffix returns the public suffix of name.
// A trailing dot is not matched but is kept in the result.
func (l *List) Suffix(name string) (Suffix, error) {
	var offBuf, keyOffBuf [labelBufLen]int
	m, err := l.find(name, offBuf[:], keyOffBuf[:])
	if err != nil {
		return Suffix{}, err
	}
	return Suffix{name: name, start: m.suffixStart(), typ: m.typ}, nil
}

// Domain returns the registrable domain of name. It returns
// ErrNoRegistrableDomain if name is a public suffix itself.
func (l *List) Domain(name string) (Domain, error) {
	var offBuf, keyOffBuf [labelBufLen]int
	m, err := l.find(name, offBuf[:], keyOffBuf[:])
	if err != nil {
		return Domain{}, err
	}
	start := m.domainStart()
	if start < 0 {
		return Domain{}, ErrNoRegistrableDomain
	}
	return Domain{name: name, start: start, suffixStart: m.suffixStart(), typ: m.typ}, nil
}

// PublicSuffix returns the public suffix of name and whether it is
// managed by ICANN. An empty string is returned if name has no label.
func (l *List) PublicSuffix(name string) (suffix string, icann bool) {
	s, err := l.Suffix(name)
	if err != nil {
		return "", false
	}
	return s.String(), s.IsICANN()
}

// EffectiveTLDPlusOne returns the registrable domain of name as a string.
func (l *List) EffectiveTLDPlusOne(name string) (string, error) {
	d, err := l.Domain(name)
	if err != nil {
		return "", err
	}
	return d.String(), nil
}
