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

// Type tells which section of the list a rule came from.
type Type uint8

const (
	// TypeUnknown is the type of the implicit "*" rule, i.e. no rule matched.
	TypeUnknown Type = iota
	TypeICANN
	TypePrivate
)

func (t Type) String() string {
	switch t {
	case TypeICANN:
		return "icann"
	case TypePrivate:
		return "private"
	default:
		return "unknown"
	}
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	*t = ParseType(string(b))
	return nil
}

// ParseType parses the output of Type.String. Unrecognized strings
// are TypeUnknown.
func ParseType(s string) Type {
	switch s {
	case "icann", "ICANN":
		return TypeICANN
	case "private", "PRIVATE":
		return TypePrivate
	default:
		return TypeUnknown
	}
}

// Kind is the kind of rule.
type Kind uint8

const (
	KindExact Kind = iota
	KindWildcard
	KindException
)

func (k Kind) String() string {
	switch k {
	case KindWildcard:
		return "wildcard"
	case KindException:
		return "exception"
	default:
		return "exact"
	}
}

// Rule is a parsed rule of the list.
type Rule struct {
	// Text is the rule as it appears in the list, e.g. "*.ck", "!www.ck".
	Text string
	// Key is the normalized index key. For wildcard rules it does not
	// include the leading "*." and for exception rules it does not
	// include the "!".
	Key  string
	Kind Kind
	Type Type
}
