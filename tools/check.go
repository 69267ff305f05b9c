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

package tools

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/IrineSistiana/pslookup/mlog"
	"github.com/IrineSistiana/pslookup/pkg/publicsuffix"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	lf := new(listFlags)
	var testFile string
	c := &cobra.Command{
		Use:   "check [-l list] -t tests.txt",
		Args:  cobra.NoArgs,
		Short: "Run a test file in the checkPublicSuffix format against a list.",
		Run: func(cmd *cobra.Command, args []string) {
			if err := checkList(lf, testFile, os.Stdout); err != nil {
				mlog.S().Fatal(err)
			}
		},
	}
	lf.register(c)
	c.Flags().StringVarP(&testFile, "tests", "t", "", "test file")
	c.MarkFlagRequired("tests")
	c.MarkFlagFilename("tests")
	return c
}

var errCheckFailed = errors.New("some test cases failed")

// checkList prints failed cases to w. It returns errCheckFailed if any
// case failed.
func checkList(lf *listFlags, testFile string, w io.Writer) error {
	h, err := lf.load()
	if err != nil {
		return err
	}
	f, err := os.Open(testFile)
	if err != nil {
		return err
	}
	defer f.Close()
	tcs, err := publicsuffix.ReadTestCases(f)
	if err != nil {
		return err
	}

	l := h.Load().List
	failed := 0
	for _, tc := range tcs {
		got, pass := l.Check(tc)
		if pass {
			continue
		}
		failed++
		want := tc.Want
		if tc.WantNull {
			want = "null"
		}
		if len(got) == 0 {
			got = "null"
		}
		fmt.Fprintf(w, "FAIL line %d: %q want %s, got %s\n", tc.Line, tc.Input, want, got)
	}
	fmt.Fprintf(w, "%d cases, %d passed, %d failed\n", len(tcs), len(tcs)-failed, failed)
	if failed > 0 {
		return errCheckFailed
	}
	return nil
}
