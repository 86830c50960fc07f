package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"taskapp/internal/core/model/snapshot"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func newExportCmd(load configLoader) *cobra.Command {
	var format, output string

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write every task to a JSON or YAML snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()

			if err != nil {
				return err
			}

			svc, s, err := openService(cmd.Context(), cfg)

			if err != nil {
				return err
			}

			defer s.Close()

			snap, err := svc.Export(cmd.Context())

			if err != nil {
				return err
			}

			out, err := openOutput(cmd, output)

			if err != nil {
				return err
			}

			return writeSnapshot(out, snap, format)
		},
	}

	exportCmd.Flags().StringVar(&format, "format", formatJSON, "Snapshot format (json, yaml)")
	exportCmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, - for stdout")

	return exportCmd
}

func newImportCmd(load configLoader) *cobra.Command {
	var format, input string

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Create the tasks of a JSON or YAML snapshot as one batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()

			if err != nil {
				return err
			}

			r, closeFn, err := openInput(cmd, input)

			if err != nil {
				return err
			}

			defer closeFn()

			items, err := decodeItems(r, format)

			if err != nil {
				return err
			}

			svc, s, err := openService(cmd.Context(), cfg)

			if err != nil {
				return err
			}

			defer s.Close()

			created, err := svc.Import(cmd.Context(), items)

			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d tasks\n", len(created))

			return nil
		},
	}

	importCmd.Flags().StringVar(&format, "format", formatJSON, "Snapshot format (json, yaml)")
	importCmd.Flags().StringVarP(&input, "input", "i", "-", "Input file, - for stdin")

	return importCmd
}

func encodeSnapshot(w io.Writer, snap snapshot.Snapshot, format string) error {
	switch strings.ToLower(format) {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(snap)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(snap); err != nil {
			return err
		}

		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// decodeItems reads the tasks list of a snapshot document. YAML items are
// converted to JSON so both formats go through the same import parser.
func decodeItems(r io.Reader, format string) ([]json.RawMessage, error) {
	switch strings.ToLower(format) {
	case formatJSON:
		var doc struct {
			Tasks []json.RawMessage `json:"tasks"`
		}

		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode json snapshot: %w", err)
		}

		return doc.Tasks, nil
	case formatYAML:
		var doc struct {
			Tasks []any `yaml:"tasks"`
		}

		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode yaml snapshot: %w", err)
		}

		items := make([]json.RawMessage, 0, len(doc.Tasks))

		for i, task := range doc.Tasks {
			raw, err := json.Marshal(task)

			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i+1, err)
			}

			items = append(items, raw)
		}

		return items, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func openOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}

	f, err := os.Create(path)

	if err != nil {
		return nil, err
	}

	return f, nil
}

// writeSnapshot encodes snap into out and closes it. A failed close means the
// file may be incomplete, so it is reported like an encoding error.
func writeSnapshot(out io.WriteCloser, snap snapshot.Snapshot, format string) error {
	if err := encodeSnapshot(out, snap, format); err != nil {
		out.Close()
		return err
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("close export output: %w", err)
	}

	return nil
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}

	f, err := os.Open(path)

	if err != nil {
		return nil, nil, err
	}

	return f, func() { f.Close() }, nil
}
