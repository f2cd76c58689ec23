package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Parrot-Developers/libARCommands-sub002/internal/config"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/monitor"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/frame"
	"github.com/Parrot-Developers/libARCommands-sub002/internal/protocol/schema"
)

func newTableCmd() *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "table",
		Short: "List the command table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeTable(cmd.OutOrStdout(), schema.Default(), project)
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "only list this project")
	return cmd
}

func writeTable(out io.Writer, t *schema.Table, project string) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBUFFER\tARGS")
	for _, spec := range t.Specs() {
		if project != "" && !strings.EqualFold(project, spec.Project) {
			continue
		}
		args := make([]string, 0, len(spec.Args))
		for _, a := range spec.Args {
			args = append(args, a.Name+":"+a.Type.String())
		}
		name := spec.FullName()
		if spec.List {
			name += " (list)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", spec.ID, name, spec.Buffer, strings.Join(args, " "))
	}
	return tw.Flush()
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <hex>...",
		Short: "Decode one or more concatenated command frames",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(strings.Join(args, ""))
			if err != nil {
				return fmt.Errorf("decode hex: %w", err)
			}
			return decodeAll(cmd.OutOrStdout(), schema.Default(), raw)
		},
	}
}

// decodeAll prints every frame in raw in stream order.
func decodeAll(out io.Writer, t *schema.Table, raw []byte) error {
	offset := 0
	for offset < len(raw) {
		cmd, n, err := frame.Decode(t, raw, offset)
		if err != nil {
			return fmt.Errorf("offset %d: %w", offset, err)
		}
		args := monitor.Args(cmd)
		keys := make([]string, 0, len(args))
		for k := range args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(out, "%s %s\n", cmd.ID, cmd.Name())
		for _, k := range keys {
			fmt.Fprintf(out, "  %s = %v\n", k, args[k])
		}
		offset += n
	}
	return nil
}

func newEncodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encode <project.class.command> [args...]",
		Short: "Encode a command frame from text arguments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := encodeText(schema.Default(), args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func encodeText(t *schema.Table, name string, args []string) (string, error) {
	cmd, err := frame.BuildFromText(t, name, args)
	if err != nil {
		return "", err
	}
	raw, err := frame.Encode(cmd)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Config helpers",
	}
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config after file, env and override",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			effective, err := opts.loadConfig()
			if err != nil {
				return err
			}
			raw, err := config.Marshal(effective)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	})
	return cfg
}
