package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jward/copper"
	"github.com/jward/copper/internal/cop"
)

var validFormats = map[string]bool{
	"json": true,
	"text": true,
}

func validateFormat(f string) error {
	if !validFormats[f] {
		return fmt.Errorf("invalid format %q: must be json or text", f)
	}
	return nil
}

// copInfo is one row of `copper cops`.
type copInfo struct {
	Name        string   `json:"name"`
	Severity    string   `json:"severity"`
	NodeTypes   []string `json:"node_types"`
	Correctable bool     `json:"correctable"`
	Description string   `json:"description,omitempty"`
}

func newCopsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cops [path]",
		Short: "List the cops enabled for a project",
		Long:  "Lists built-in and script cops with the severity the configuration gives them. Disabled cops are not shown.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCops(cmd, opts, args)
		},
	}
}

func runCops(cmd *cobra.Command, opts *options, args []string) error {
	targets, err := resolveTargets(args)
	if err != nil {
		return err
	}
	repoRoot := findRepoRoot(targetDir(targets[0]))
	cfg, err := loadConfig(opts.configPath, repoRoot)
	if err != nil {
		return err
	}
	engine, err := copper.New(
		copper.WithConfig(cfg),
		copper.WithLogger(newLogger(cmd.ErrOrStderr(), opts.debug)),
	)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()
	warnLoadErrors(cmd.ErrOrStderr(), engine.LoadErrors())

	infos := listCops(engine.Registry())
	out := cmd.OutOrStdout()
	if opts.format == "json" {
		return writeJSON(out, infos)
	}
	formatCopsText(out, infos)
	return nil
}

func listCops(reg *cop.Registry) []copInfo {
	rules := reg.Rules()
	infos := make([]copInfo, 0, len(rules))
	for _, r := range rules {
		info := copInfo{
			Name:      r.Name(),
			Severity:  r.Severity().String(),
			NodeTypes: r.NodeTypes(),
		}
		if d, ok := r.(cop.Describer); ok {
			info.Description = d.Description()
		}
		if a, ok := r.(cop.Autocorrector); ok {
			info.Correctable = a.Correctable()
		}
		infos = append(infos, info)
	}
	return infos
}

// formatCopsText formats cops as aligned columns.
func formatCopsText(w io.Writer, infos []copInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSEVERITY\tNODES\tCORRECTABLE\tDESCRIPTION")
	for _, c := range infos {
		fix := "no"
		if c.Correctable {
			fix = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Name, c.Severity, strings.Join(c.NodeTypes, ","), fix, c.Description)
	}
	tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}
