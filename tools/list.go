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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/IrineSistiana/pslookup/mlog"
	"github.com/IrineSistiana/pslookup/pkg/list_source"
	"github.com/IrineSistiana/pslookup/pkg/publicsuffix"
	"github.com/spf13/cobra"
)

const downloadTimeout = time.Second * 30

// listFlags selects a list and how it is parsed.
type listFlags struct {
	list     string
	punycode bool
	fold     bool
}

func (f *listFlags) register(c *cobra.Command) {
	fs := c.PersistentFlags()
	fs.StringVarP(&f.list, "list", "l", publicsuffix.OfficialURL, "list file path or http(s) url")
	fs.BoolVar(&f.punycode, "punycode", false, "convert unicode labels to punycode")
	fs.BoolVar(&f.fold, "fold", false, "use unicode case folding")
	c.MarkPersistentFlagFilename("list")
}

func (f *listFlags) options() publicsuffix.Options {
	return publicsuffix.Options{UnicodeFold: f.fold, Punycode: f.punycode}
}

// load loads and parses the list into a holder.
func (f *listFlags) load() (*publicsuffix.Holder, error) {
	b, err := loadListBytes(f.list)
	if err != nil {
		return nil, err
	}
	h := publicsuffix.NewHolder(f.options())
	if err := h.Update(b); err != nil {
		return nil, fmt.Errorf("failed to parse list %s, %w", f.list, err)
	}
	return h, nil
}

type bytesListener struct {
	b []byte
}

func (l *bytesListener) Update(b []byte) error {
	l.b = b
	return nil
}

// loadListBytes reads a list from a local file or downloads it if src
// is a http(s) url.
func loadListBytes(src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.ReadFile(src)
	}

	s := list_source.NewHTTPSource(list_source.HTTPSourceConfig{URL: src, Interval: -1, MinRules: -1}, mlog.L())
	defer s.Close()
	ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
	defer cancel()
	l := new(bytesListener)
	if err := s.LoadAndAddListener(ctx, l); err != nil {
		return nil, err
	}
	return l.b, nil
}

func newListCmd() *cobra.Command {
	lf := new(listFlags)
	c := &cobra.Command{
		Use:   "list",
		Short: "Inspect a public suffix list.",
	}
	lf.register(c)
	c.AddCommand(newListStatsCmd(lf), newListDumpCmd(lf))
	return c
}

func newListStatsCmd(lf *listFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [-l list]",
		Args:  cobra.NoArgs,
		Short: "Print rule counters of the list.",
		Run: func(cmd *cobra.Command, args []string) {
			if err := listStats(lf, os.Stdout); err != nil {
				mlog.S().Fatal(err)
			}
		},
	}
}

func newListDumpCmd(lf *listFlags) *cobra.Command {
	var typ string
	c := &cobra.Command{
		Use:   "dump [-l list] [--type icann|private]",
		Args:  cobra.NoArgs,
		Short: "Print the parsed rules of the list.",
		Run: func(cmd *cobra.Command, args []string) {
			if err := listDump(lf, typ, os.Stdout); err != nil {
				mlog.S().Fatal(err)
			}
		},
	}
	c.Flags().StringVar(&typ, "type", "", "only print rules of this section, icann or private")
	return c
}

func listStats(lf *listFlags, w io.Writer) error {
	h, err := lf.load()
	if err != nil {
		return err
	}
	snap := h.Load()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Fingerprint string             `json:"fingerprint"`
		Size        int                `json:"size"`
		Stats       publicsuffix.Stats `json:"stats"`
	}{
		Fingerprint: snap.Fingerprint,
		Size:        snap.Size,
		Stats:       snap.List.Stats(),
	})
}

func listDump(lf *listFlags, typ string, w io.Writer) error {
	var want publicsuffix.Type
	if len(typ) > 0 {
		want = publicsuffix.ParseType(typ)
		if want == publicsuffix.TypeUnknown {
			return fmt.Errorf("invalid rule type %q", typ)
		}
	}

	h, err := lf.load()
	if err != nil {
		return err
	}
	var werr error
	h.Load().List.Rules(func(r publicsuffix.Rule) bool {
		if want != publicsuffix.TypeUnknown && r.Type != want {
			return true
		}
		_, werr = fmt.Fprintf(w, "%s\t%s\t%s\n", r.Text, r.Kind, r.Type)
		return werr == nil
	})
	return werr
}
