// Package cli implements the kfsearch-cli commands on top of the SDK.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/kfsearch/internal/version"
	kfsearch "github.com/kailas-cloud/kfsearch/pkg/sdk"
)

type rootOptions struct {
	configFile string
	env        string
	framesRoot string
	verbose    bool
}

type searchOptions struct {
	mode       string
	k          int
	model      string
	fuzzy      bool
	jsonOutput bool
	maxVideos  int
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "kfsearch-cli",
		Short: "Query the keyframe index from the command line",
		Long: `kfsearch-cli runs one query through the kfsearch pipeline in-process,
using the same configuration file as the server.

Modes:
  dense-caption  embedding similarity fused with caption BM25 (default)
  dense-nocap    embedding similarity only
  ocr            on-screen text match, backend order
  speech         transcript match, backend order`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Path to config YAML (default: config/<env>.yaml)")
	root.PersistentFlags().StringVar(&opts.env, "env", "", "Config environment (default: $ENV or local)")
	root.PersistentFlags().StringVar(&opts.framesRoot, "frames-root", "", "Override frames.root")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log SDK operations to stderr")

	root.AddCommand(newSearchCmd(opts))
	root.AddCommand(newModelsCmd(opts))
	root.AddCommand(newHealthCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run one query and print frame and video results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := openClient(ctx, root)
			if err != nil {
				return err
			}
			defer client.Close()

			searchOpts := []kfsearch.SearchOption{
				kfsearch.WithMode(kfsearch.Mode(opts.mode)),
				kfsearch.WithK(opts.k),
			}
			if opts.model != "" {
				searchOpts = append(searchOpts, kfsearch.WithModel(opts.model))
			}
			if cmd.Flags().Changed("fuzzy") {
				searchOpts = append(searchOpts, kfsearch.WithFuzzy(opts.fuzzy))
			}

			resp, err := client.Search(ctx, args[0], searchOpts...)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				return writeJSON(out, resp)
			}
			return writeTable(out, resp, opts.maxVideos)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(kfsearch.ModeDenseCaption), "Search mode")
	cmd.Flags().IntVar(&opts.k, "k", 0, "Candidates to retrieve (default: search.default_k)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Dense model (default: the mode's configured model)")
	cmd.Flags().BoolVar(&opts.fuzzy, "fuzzy", true, "Fuzzy term matching for ocr/speech")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the raw JSON response")
	cmd.Flags().IntVar(&opts.maxVideos, "videos", 10, "Videos to show in table output (0 = all)")
	return cmd
}

func newModelsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the configured dense models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := openClient(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer client.Close()

			for _, m := range client.Models() {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
}

func newHealthCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check every configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := openClient(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer client.Close()

			h := client.Health(cmd.Context())
			if err := writeJSON(cmd.OutOrStdout(), h); err != nil {
				return err
			}
			if h.Status != "ok" {
				return fmt.Errorf("status %s", h.Status)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kfsearch-cli %s\n", version.String())
		},
	}
}

func openClient(ctx context.Context, opts *rootOptions) (*kfsearch.Client, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var clientOpts []kfsearch.Option
	switch {
	case opts.configFile != "":
		clientOpts = append(clientOpts, kfsearch.WithConfigFile(opts.configFile))
	case opts.env != "":
		clientOpts = append(clientOpts, kfsearch.WithEnv(opts.env))
	case os.Getenv("ENV") != "":
		clientOpts = append(clientOpts, kfsearch.WithEnv(os.Getenv("ENV")))
	}
	if opts.framesRoot != "" {
		clientOpts = append(clientOpts, kfsearch.WithFramesRoot(opts.framesRoot))
	}
	if opts.verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		clientOpts = append(clientOpts, kfsearch.WithLogger(logger))
	}

	client, err := kfsearch.New(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return client, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable prints ranked videos with their frames. Keyword modes show "-" for scores.
func writeTable(w io.Writer, resp *kfsearch.Response, maxVideos int) error {
	if len(resp.Frames) == 0 {
		_, err := fmt.Fprintln(w, "No results found")
		return err
	}

	fmt.Fprintf(w, "%d frames, %d videos\n\n", len(resp.Frames), len(resp.Videos))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tVIDEO\tSCORE\tHITS\tFRAMES\tTOP FRAME")
	for i, v := range resp.Videos {
		if maxVideos > 0 && i >= maxVideos {
			break
		}
		top := ""
		if len(v.Frames) > 0 {
			top = v.Frames[0].Path
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
			v.BestRank, v.ID, formatScore(v.Score), len(v.Frames), len(v.AllFrames), top)
	}
	return tw.Flush()
}

func formatScore(s *float64) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *s)
}
