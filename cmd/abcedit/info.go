package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gemforce-team/abcedit"
	"github.com/gemforce-team/abcedit/errors"
)

var infoFormat string

var infoCmd = &cobra.Command{
	Use:   "info <file>...",
	Short: "Show versions, pool sizes and counts of ABC documents",
	Long: `Decode each document and print its versions, constant pool sizes,
table counts, number of instruction decode errors and blake3 digest.

Arguments may be glob patterns; ** matches across directories.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().StringVar(&infoFormat, "format", "text", "Output format (text, yaml)")
}

// infoEntry is one document in info output.
type infoEntry struct {
	Name            string `yaml:"name"`
	abcedit.Summary `yaml:",inline"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	if infoFormat != "text" && infoFormat != "yaml" {
		return errors.Unsupported(errors.PhaseConfig, "format "+infoFormat)
	}
	paths, err := expandPaths(args)
	if err != nil {
		return err
	}
	entries, err := collectInfo(paths)
	if err != nil {
		return err
	}
	return writeInfo(cmd.OutOrStdout(), infoFormat, entries)
}

func collectInfo(paths []string) ([]infoEntry, error) {
	var entries []infoEntry
	for _, path := range paths {
		inputs, err := readInputs(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, in := range inputs {
			s, err := abcedit.Summarize(in.data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", in.name, err)
			}
			entries = append(entries, infoEntry{Name: in.name, Summary: s})
		}
	}
	return entries, nil
}

func writeInfo(w io.Writer, format string, entries []infoEntry) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	}

	for i, e := range entries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		p := e.Pools
		fmt.Fprintln(w, e.Name)
		fmt.Fprintf(w, "  version    %d.%d\n", e.MajorVersion, e.MinorVersion)
		fmt.Fprintf(w, "  size       %d bytes\n", e.Size)
		fmt.Fprintf(w, "  blake3     %s\n", e.Digest)
		fmt.Fprintf(w, "  pools      int %d, uint %d, double %d, string %d, namespace %d, nsset %d, multiname %d\n",
			p.Ints, p.UInts, p.Doubles, p.Strings, p.Namespaces, p.NamespaceSets, p.Multinames)
		fmt.Fprintf(w, "  methods    %d (%d bodies, %d instructions, %d decode errors)\n",
			e.Methods, e.Bodies, e.Instructions, e.DecodeErrors)
		fmt.Fprintf(w, "  classes    %d\n", e.Classes)
		fmt.Fprintf(w, "  scripts    %d\n", e.Scripts)
		fmt.Fprintf(w, "  metadata   %d\n", e.Metadata)
		fmt.Fprintf(w, "  orphans    %d classes, %d methods\n", e.OrphanClasses, e.OrphanMethods)
	}
	return nil
}
