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
	"encoding/hex"
	"sync/atomic"
	"time"

	"lukechampine.com/blake3"
)

// Snapshot is a parsed list and where it came from.
type Snapshot struct {
	List *List

	// Fingerprint identifies the raw list bytes. Two snapshots with the
	// same Fingerprint and Options return the same results.
	Fingerprint string
	Generation  uint64
	LoadedAt    time.Time
	Size        int
}

// Holder holds the current list. Lookups load a Snapshot and keep using
// it, Update swaps in a new one without blocking them.
type Holder struct {
	opts       Options
	generation atomic.Uint64
	p          atomic.Pointer[Snapshot]
}

func NewHolder(opts Options) *Holder {
	return &Holder{opts: opts}
}

// Options returns the options used to parse lists.
func (h *Holder) Options() Options {
	return h.opts
}

// Load returns the current snapshot. It returns nil if no list was
// loaded yet.
func (h *Holder) Load() *Snapshot {
	return h.p.Load()
}

// Update parses b and makes it the current list. On error the current
// list is kept.
func (h *Holder) Update(b []byte) error {
	_, err := h.UpdateSnapshot(b)
	return err
}

// UpdateSnapshot is like Update but also returns the new snapshot.
func (h *Holder) UpdateSnapshot(b []byte) (*Snapshot, error) {
	l, err := ParseBytes(b, h.opts)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{
		List:        l,
		Fingerprint: Fingerprint(b),
		Generation:  h.generation.Add(1),
		LoadedAt:    time.Now(),
		Size:        len(b),
	}
	h.p.Store(s)
	return s, nil
}

// Fingerprint returns the hex encoded first 16 bytes of the blake3
// hash of b.
func Fingerprint(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:16])
}
