package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gemforce-team/abcedit/editor"
	"github.com/gemforce-team/abcedit/listing"
)

var dumpOutput string

var dumpCmd = &cobra.Command{
	Use:   "dump <file>...",
	Short: "Write text listings of documents into a directory",
	Long: `Decode each document and write one listing file per script, orphan
class and orphan method into the output directory.

Movies with several DoABC tags get one subdirectory per tag; several input
files get one subdirectory per file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "Output directory (default from config, \"dump\")")
}

func runDump(cmd *cobra.Command, args []string) error {
	dir := cfg.Dump.Output
	if cmd.Flags().Changed("output") {
		dir = dumpOutput
	}
	paths, err := expandPaths(args)
	if err != nil {
		return err
	}

	names := listing.NewNamer()
	total := 0
	for _, path := range paths {
		target := dir
		if len(paths) > 1 {
			base := filepath.Base(path)
			target = filepath.Join(dir, names.Name(strings.TrimSuffix(base, filepath.Ext(base))))
		}
		inputs, err := readInputs(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		n, err := dumpInputs(inputs, target)
		if err != nil {
			return err
		}
		total += n
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d files to %s\n", total, dir)
	return nil
}

// dumpInputs writes the listings of inputs under dir and returns the number
// of files written.
func dumpInputs(inputs []input, dir string) (int, error) {
	names := listing.NewNamer()
	written := 0
	for i, in := range inputs {
		d := editor.Open(in.data, documentOptions()...)
		if _, err := d.Decode(); err != nil {
			return written, fmt.Errorf("%s: %w", in.name, err)
		}
		files, err := d.Listing()
		if err != nil {
			return written, fmt.Errorf("%s: %w", in.name, err)
		}

		target := dir
		if in.movie != nil && len(inputs) > 1 {
			target = filepath.Join(dir, names.Name(in.blobName(i)))
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return written, err
		}
		for _, f := range files {
			if err := os.WriteFile(filepath.Join(target, f.Name), []byte(f.Content), 0o644); err != nil {
				return written, err
			}
			written++
		}
		logger.Debug("listing written", zap.String("document", in.name), zap.String("dir", target), zap.Int("files", len(files)))
	}
	return written, nil
}
