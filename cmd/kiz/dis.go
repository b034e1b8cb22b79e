package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hokaccha/go-prettyjson"
	"github.com/kiz-lang/kiz/bytecode"
	"github.com/kiz-lang/kiz/dis"
	"github.com/spf13/cobra"
)

func newDisCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [file]",
		Short: "Disassemble a compiled unit",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.disHandler,
	}
	cmd.Flags().String("func", "", "Function to disassemble")
	return cmd
}

func (a *app) disHandler(cmd *cobra.Command, args []string) error {
	code, err := a.loadUnit(args)
	if err != nil {
		return err
	}
	funcName := a.v.GetString("func")
	if funcName == "" {
		return dis.PrintAll(code, a.stdout)
	}
	var target *bytecode.Code
	for _, c := range code.Flatten() {
		if c.Name() == funcName {
			target = c
			break
		}
	}
	if target == nil {
		return fmt.Errorf("function %q not found", funcName)
	}
	instructions, err := dis.Disassemble(target)
	if err != nil {
		return err
	}
	dis.Print(instructions, a.stdout)
	dis.PrintExceptionTable(target, a.stdout)
	return nil
}

func (a *app) loadUnit(args []string) (*bytecode.Code, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}
	path, err := unitPath(cfg, args)
	if err != nil {
		return nil, err
	}
	return readUnit(path)
}

func newStatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [file]",
		Short: "Print statistics about a compiled unit",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.statsHandler,
	}
	cmd.Flags().StringP("output", "o", "", "Output format (json or text)")
	return cmd
}

type unitStats struct {
	ID               string `json:"id"`
	Path             string `json:"path,omitempty"`
	Instructions     int    `json:"instructions"`
	Constants        int    `json:"constants"`
	Functions        int    `json:"functions"`
	ExceptionEntries int    `json:"exception_entries"`
	Locals           int    `json:"locals"`
}

func (a *app) statsHandler(cmd *cobra.Command, args []string) error {
	code, err := a.loadUnit(args)
	if err != nil {
		return err
	}
	s := code.Stats()
	stats := unitStats{
		ID:               code.ID(),
		Path:             code.Path(),
		Instructions:     s.InstructionCount,
		Constants:        s.ConstantCount,
		Functions:        s.FunctionCount,
		ExceptionEntries: s.ExceptionEntryCount,
		Locals:           code.LocalNameCount(),
	}
	switch strings.ToLower(a.v.GetString("output")) {
	case "text":
		fmt.Fprintf(a.stdout, "instructions: %d\nconstants: %d\nfunctions: %d\nexception entries: %d\n",
			stats.Instructions, stats.Constants, stats.Functions, stats.ExceptionEntries)
		return nil
	case "", "json":
		var out []byte
		if a.useColor(a.stdout) {
			out, err = prettyjson.Marshal(stats)
		} else {
			out, err = json.MarshalIndent(stats, "", "  ")
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, string(out))
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", a.v.GetString("output"))
	}
}
