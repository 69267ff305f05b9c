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
	"bufio"
	"fmt"
	"io"
	"strings"
)

// TestCase is a line of the test file published with the list
// ("tests/tests.txt" upstream). Each line is "<input> <expected>" where
// expected is the registrable domain, "null" stands for no input or
// no registrable domain.
type TestCase struct {
	Line     int
	Input    string
	Want     string
	WantNull bool
}

const nullToken = "null"

// ReadTestCases reads test cases from r.
func ReadTestCases(r io.Reader) ([]TestCase, error) {
	var tcs []TestCase
	lineCounter := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineCounter++
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("invalid test case at line %d: %q", lineCounter, line)
		}
		tc := TestCase{Line: lineCounter, Input: fields[0], Want: fields[1]}
		if tc.Input == nullToken {
			tc.Input = ""
		}
		if tc.Want == nullToken {
			tc.Want = ""
			tc.WantNull = true
		}
		tcs = append(tcs, tc)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tcs, nil
}

// Check runs tc against l. got is the registrable domain l found,
// an empty string if it found none.
func (l *List) Check(tc TestCase) (got string, pass bool) {
	got, null := l.checkDomain(tc.Input)
	return got, null == tc.WantNull && got == tc.Want
}

func (l *List) checkDomain(input string) (string, bool) {
	// Test inputs are mixed case, the expected results are not.
	input = strings.ToLower(input)
	if len(input) == 0 || strings.HasPrefix(input, ".") || strings.Contains(input, "..") {
		return "", true
	}
	d, err := l.Domain(input)
	if err != nil {
		return "", true
	}
	return d.String(), false
}
