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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		opts  Options
		label string
		want  string
	}{
		{Options{}, "com", "com"},
		{Options{}, "CoM", "com"},
		{Options{}, "xn--55qx5d", "xn--55qx5d"},
		{Options{}, "公司", "公司"},
		{Options{}, "ÉCOLE", "École"},
		{Options{UnicodeFold: true}, "ÉCOLE", "école"},
		{Options{UnicodeFold: true}, "Straße", "strasse"},
		{Options{Punycode: true}, "公司", "xn--55qx5d"},
		{Options{Punycode: true}, "XN--55QX5D", "xn--55qx5d"},
		{Options{Punycode: true, UnicodeFold: true}, "中国", "xn--fiqs8s"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			n := NewNormalizer(tt.opts)
			got, err := n.NormalizeLabel(tt.label)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := n.NormalizeLabel(got)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestNormalizeLabel_encodingError(t *testing.T) {
	n := NewNormalizer(Options{Punycode: true})
	_, err := n.NormalizeLabel("\xff")
	assert.ErrorIs(t, err, ErrEncoding)

	for _, label := range []string{
		"www\u3002ck",
		"www\uff0eck",
		"www\uff61ck",
		"\u3002",
		strings.Repeat("\u00e9", 70),
	} {
		_, err = n.NormalizeLabel(label)
		assert.ErrorIs(t, err, ErrEncoding, label)
	}

	// ASCII labels never go through IDNA.
	got, err := n.NormalizeLabel("-Bad-")
	require.NoError(t, err)
	assert.Equal(t, "-bad-", got)
}

func TestAsciiLower(t *testing.T) {
	s := "already.lower"
	assert.Equal(t, s, asciiLower(s))
	assert.Equal(t, "mixed.case", asciiLower("MiXeD.CaSe"))
	assert.True(t, hasUpperASCII("aB"))
	assert.False(t, hasUpperASCII("ab"))
}
