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
	"github.com/IrineSistiana/pslookup/coremain"
	"github.com/spf13/cobra"
)

func init() {
	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "Offline tools.",
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Tools that can generate/convert pslookup config file.",
	}
	configCmd.AddCommand(newGenCmd(), newConvCmd(), newShowCmd())

	toolsCmd.AddCommand(
		newLookupCmd(),
		newListCmd(),
		newCheckCmd(),
		configCmd,
	)
	coremain.AddSubCmd(toolsCmd)
}
