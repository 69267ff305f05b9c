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

package coremain

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"syscall"

	"github.com/IrineSistiana/pslookup/mlog"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use: "pslookup",
}

func init() {
	sf := new(serverFlags)
	startCmd := &cobra.Command{
		Use:   "start [-c config_file] [-d working_dir]",
		Short: "Start pslookup main program.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sf.asService {
				svc, err := newService(sf)
				if err != nil {
					return fmt.Errorf("failed to init service, %w", err)
				}
				return svc.Run()
			}

			m, err := NewServer(sf)
			if err != nil {
				return err
			}

			go func() {
				c := make(chan os.Signal, 1)
				signal.Notify(c, os.Interrupt, syscall.SIGTERM)
				sig := <-c
				m.Logger().Warn("signal received", zap.Stringer("signal", sig))
				m.GetSafeClose().SendCloseSignal(nil)
			}()
			return m.Wait()
		},
		DisableFlagsInUseLine: true,
		SilenceUsage:          true,
	}
	rootCmd.AddCommand(startCmd)
	fs := startCmd.PersistentFlags()
	fs.StringVarP(&sf.c, "config", "c", "", "config file")
	fs.StringVarP(&sf.dir, "dir", "d", "", "working dir")
	fs.IntVar(&sf.cpu, "cpu", 0, "set runtime.GOMAXPROCS")
	fs.BoolVar(&sf.asService, "as-service", false, "start as a service")
	_ = fs.MarkHidden("as-service")

	serviceCmd := &cobra.Command{
		Use:               "service",
		Short:             "Manage pslookup as a system service.",
		PersistentPreRunE: initService,
	}
	serviceCmd.AddCommand(
		newSvcInstallCmd(),
		newSvcUninstallCmd(),
		newSvcStartCmd(),
		newSvcStopCmd(),
		newSvcRestartCmd(),
		newSvcStatusCmd(),
	)
	rootCmd.AddCommand(serviceCmd)
}

func AddSubCmd(c *cobra.Command) {
	rootCmd.AddCommand(c)
}

func Run() error {
	return rootCmd.Execute()
}

type serverFlags struct {
	c         string
	dir       string
	cpu       int
	asService bool
}

// NewServer loads the config selected by sf and starts a server.
func NewServer(sf *serverFlags) (*PSLookup, error) {
	if sf.cpu > 0 {
		runtime.GOMAXPROCS(sf.cpu)
	}

	if len(sf.dir) > 0 {
		err := os.Chdir(sf.dir)
		if err != nil {
			return nil, fmt.Errorf("failed to change the current working directory, %w", err)
		}
		mlog.L().Info("working directory changed", zap.String("path", sf.dir))
	}

	cfg, err := LoadConfig(sf.c)
	if err != nil {
		return nil, err
	}
	return NewPSLookup(cfg)
}

// LoadConfig reads the config file at path and all its includes.
// If path is empty, "config.*" in the working directory is used.
func LoadConfig(path string) (*Config, error) {
	cfg, fileUsed, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	mlog.L().Info("main config loaded", zap.String("file", fileUsed))

	if err := mergeInclude(cfg, 0, []string{fileUsed}, []string{tryGetAbsPath(fileUsed)}); err != nil {
		return nil, fmt.Errorf("failed to load sub config file, %w", err)
	}
	return cfg, nil
}

func loadConfig(path string) (*Config, string, error) {
	v := viper.New()
	if len(path) > 0 {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, "", fmt.Errorf("failed to read config file, %w", err)
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg, decoderOpt); err != nil {
		return nil, "", fmt.Errorf("failed to parse config file, %w", err)
	}
	return cfg, v.ConfigFileUsed(), nil
}

func decoderOpt(cfg *mapstructure.DecoderConfig) {
	cfg.ErrorUnused = true
	cfg.TagName = "yaml"
	cfg.WeaklyTypedInput = true
}

// mergeInclude loads the includes of cfg. A section of a sub config is
// used only if cfg does not have it. Dns listeners are appended.
func mergeInclude(cfg *Config, depth int, paths, absPaths []string) error {
	depth++
	if depth > 8 {
		return fmt.Errorf("maximun include depth reached, include path is %s", strings.Join(paths, " -> "))
	}
	for _, subCfgFile := range cfg.Include {
		subPaths := append(paths[:len(paths):len(paths)], subCfgFile)
		subCfgAbsPath := tryGetAbsPath(subCfgFile)
		subAbsPaths := append(absPaths[:len(absPaths):len(absPaths)], subCfgAbsPath)
		for _, includedAbsPath := range absPaths {
			if includedAbsPath == subCfgAbsPath {
				return fmt.Errorf("cycle include detected, include path is %s", strings.Join(subPaths, " -> "))
			}
		}

		mlog.L().Info("reading sub config", zap.String("file", subCfgFile))
		subCfg, _, err := loadConfig(subCfgFile)
		if err != nil {
			return fmt.Errorf("sub config %s, %w", subCfgFile, err)
		}
		if err := mergeInclude(subCfg, depth, subPaths, subAbsPaths); err != nil {
			return err
		}

		for _, section := range cfg.merge(subCfg) {
			mlog.L().Warn("section in sub config file is ignored", zap.String("file", subCfgFile), zap.String("section", section))
		}
	}
	return nil
}

// merge copies sections of sub that are empty in cfg, and returns
// the yaml names of the sections that were set in both.
func (cfg *Config) merge(sub *Config) (ignored []string) {
	cfg.DNS.Listeners = append(cfg.DNS.Listeners, sub.DNS.Listeners...)
	sub.DNS.Listeners = nil

	dst := reflect.ValueOf(cfg).Elem()
	src := reflect.ValueOf(sub).Elem()
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("yaml")
		if name == "include" {
			continue
		}
		s := src.Field(i)
		if s.IsZero() {
			continue
		}
		d := dst.Field(i)
		if d.IsZero() {
			d.Set(s)
			continue
		}
		ignored = append(ignored, name)
	}
	return ignored
}

func tryGetAbsPath(s string) string {
	p, err := filepath.Abs(s)
	if err != nil {
		return s
	}
	return p
}
