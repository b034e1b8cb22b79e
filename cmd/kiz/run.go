package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kiz-lang/kiz/vm"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Run a compiled unit",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runHandler,
	}
	cmd.Flags().Bool("timing", false, "Show execution time")
	return cmd
}

func (a *app) runHandler(cmd *cobra.Command, args []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	path, err := unitPath(cfg, args)
	if err != nil {
		return err
	}
	code, err := readUnit(path)
	if err != nil {
		return err
	}
	opts, err := a.vmOptions(cfg, path)
	if err != nil {
		return err
	}

	start := time.Now()
	err = vm.Run(cmd.Context(), code, opts...)
	if errors.Is(err, context.Canceled) {
		return &exitError{code: 130}
	}
	if err != nil {
		return err
	}
	if a.v.GetBool("timing") {
		fmt.Fprintf(a.stderr, "%v\n", time.Since(start))
	}
	return nil
}

func newVersionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.ToLower(a.v.GetString("output")) != "json" {
				fmt.Fprintln(a.stdout, version)
				return nil
			}
			info, err := json.MarshalIndent(map[string]any{
				"version": version,
				"commit":  commit,
				"date":    date,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, string(info))
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output format (json or text)")
	return cmd
}
