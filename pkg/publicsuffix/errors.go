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

import "errors"

var (
	// ErrEmptyInput is returned when a name has no label to match,
	// e.g. "" or ".".
	ErrEmptyInput = errors.New("empty domain name")

	// ErrEncoding is returned when a label cannot be converted to its
	// ASCII compatible encoding. Only possible with Options.Punycode.
	ErrEncoding = errors.New("invalid label encoding")

	// ErrNoRegistrableDomain is returned by Domain when the public suffix
	// covers the whole name.
	ErrNoRegistrableDomain = errors.New("no registrable domain")
)
