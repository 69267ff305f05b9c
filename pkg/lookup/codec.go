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

package lookup

import (
	"errors"

	"github.com/IrineSistiana/pslookup/pkg/publicsuffix"
	"google.golang.org/protobuf/encoding/protowire"
)

// A cached result only stores offsets into the name, the name itself
// is part of the cache key.
const (
	fieldSuffixStart protowire.Number = 1
	fieldDomainStart protowire.Number = 2 // offset+1, absent if no domain
	fieldType        protowire.Number = 3
)

var errInvalidCachedValue = errors.New("invalid cached value")

type offsets struct {
	suffixStart int
	domainStart int // -1 if there is no registrable domain
	typ         publicsuffix.Type
}

func encodeOffsets(o offsets) []byte {
	b := make([]byte, 0, 8)
	b = protowire.AppendTag(b, fieldSuffixStart, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(o.suffixStart))
	if o.domainStart >= 0 {
		b = protowire.AppendTag(b, fieldDomainStart, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(o.domainStart)+1)
	}
	b = protowire.AppendTag(b, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(o.typ))
	return b
}

// decodeOffsets decodes b and checks the offsets against a name of
// nameLen bytes.
func decodeOffsets(b []byte, nameLen int) (offsets, error) {
	o := offsets{suffixStart: -1, domainStart: -1}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return offsets{}, protowire.ParseError(n)
		}
		b = b[n:]
		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return offsets{}, protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return offsets{}, protowire.ParseError(n)
		}
		b = b[n:]
		if v > uint64(nameLen)+1 && num != fieldType {
			return offsets{}, errInvalidCachedValue
		}
		switch num {
		case fieldSuffixStart:
			o.suffixStart = int(v)
		case fieldDomainStart:
			o.domainStart = int(v) - 1
		case fieldType:
			o.typ = publicsuffix.Type(v)
		}
	}

	if o.suffixStart < 0 || o.suffixStart >= nameLen || o.domainStart >= o.suffixStart {
		return offsets{}, errInvalidCachedValue
	}
	return o, nil
}
