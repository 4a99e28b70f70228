// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/tclstat/internal/config"
)

var (
	configOutput string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every default",
	Long: `Print the default configuration as YAML, or write it to --output.
An existing file is left alone unless --force is given.`,
	Annotations: map[string]string{skipConfigAnnotation: ""},
	RunE:        runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringVarP(&configOutput, "output", "o", "", "File to write (default stdout)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if configOutput == "" {
		return config.WriteTemplate(cmd.OutOrStdout())
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if configForce {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(configOutput, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configOutput)
	}
	if err != nil {
		return err
	}

	if err := config.WriteTemplate(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", configOutput)
	return nil
}
