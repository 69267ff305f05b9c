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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/IrineSistiana/pslookup/mlog"
	"github.com/IrineSistiana/pslookup/pkg/lookup"
	"github.com/spf13/cobra"
)

func newLookupCmd() *cobra.Command {
	lf := new(listFlags)
	var jsonOut bool
	c := &cobra.Command{
		Use:   "lookup [-l list] [--punycode] [--fold] [--json] name...",
		Args:  cobra.MinimumNArgs(1),
		Short: "Look up names offline.",
		Run: func(cmd *cobra.Command, args []string) {
			if err := lookupNames(lf, args, jsonOut, os.Stdout); err != nil {
				mlog.S().Fatal(err)
			}
		},
	}
	lf.register(c)
	c.Flags().BoolVar(&jsonOut, "json", false, "print results as json lines")
	return c
}

func lookupNames(lf *listFlags, names []string, jsonOut bool, w io.Writer) error {
	h, err := lf.load()
	if err != nil {
		return err
	}
	s, err := lookup.NewService(lookup.Opts{Holder: h})
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(w)
		for _, name := range names {
			res, err := s.Lookup(name)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if err := enc.Encode(res); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSUFFIX\tDOMAIN\tTYPE")
	for _, name := range names {
		res, err := s.Lookup(name)
		if err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\terror: %v\n", name, err)
			continue
		}
		domain := res.Domain
		if !res.HasDomain() {
			domain = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, res.Suffix, domain, res.Type)
	}
	return tw.Flush()
}
