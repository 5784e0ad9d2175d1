package main

import (
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fluxprobe/fluxprobe/internal/config"
	"github.com/fluxprobe/fluxprobe/internal/generator"
	"github.com/fluxprobe/fluxprobe/internal/mutator"
	"github.com/fluxprobe/fluxprobe/internal/profiles"
	"github.com/fluxprobe/fluxprobe/internal/schema"
)

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List built-in protocol profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := profiles.List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tNAME\tTRANSPORT\tPORT\tFIELDS")
			for _, p := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", p.Key, p.Name, p.Transport.Type, p.Transport.Port, p.Fields)
			}
			return w.Flush()
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PATH",
		Short: "Validate a schema file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := schema.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d fields, %s %s)\n",
				s.Name, len(s.Message.Fields), s.Transport.Type, s.Transport.Address())
			return nil
		},
	}
}

func newGenerateCmd() *cobra.Command {
	var (
		protocol   string
		schemaPath string
		count      int
		seed       int64
		mutate     bool
		mutations  int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print generated frames as hex without sending them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSchema(config.TargetConfig{Protocol: protocol, Schema: schemaPath})
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			rng := rand.New(rand.NewSource(seed))

			var m *mutator.Mutator
			if mutate {
				if m, err = mutator.New(s); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for i := 1; i <= count; i++ {
				msg, err := generator.Generate(s, rng)
				if err != nil {
					return fmt.Errorf("frame %d: %w", i, err)
				}
				data, ops := msg.Data, []string(nil)
				if m != nil {
					data, ops = m.MutateTrace(msg, rng, mutations)
				}
				line := fmt.Sprintf("%d\t%s", i, hex.EncodeToString(data))
				if len(ops) > 0 {
					line += "\t" + strings.Join(ops, ",")
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&protocol, "protocol", "p", "", "Built-in protocol profile")
	f.StringVarP(&schemaPath, "schema", "s", "", "Path to a schema file")
	f.IntVar(&count, "count", 5, "Number of frames")
	f.Int64Var(&seed, "seed", 0, "Random seed (default: derived from the clock)")
	f.BoolVar(&mutate, "mutate", false, "Mutate every frame")
	f.IntVar(&mutations, "mutations", 1, "Operators applied per mutated frame")
	cmd.MarkFlagsMutuallyExclusive("protocol", "schema")
	return cmd
}

func newMutatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mutators",
		Short: "List mutation operators accepted by --mutators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, op := range mutator.DefaultRegistry(nil).All() {
				fmt.Fprintf(w, "%s\t%s\n", op.Name(), op.Description())
			}
			return w.Flush()
		},
	}
}
