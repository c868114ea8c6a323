package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"casestudy/internal/config"
	"casestudy/internal/tools"
)

func newRenderCommand(load func() config.Config) *cobra.Command {
	var title, file, outDir string
	cmd := &cobra.Command{
		Use:   "render --title TITLE [--file FILE]",
		Short: "Render a markdown-like text body to a PDF",
		Long:  "Render reads the body from --file, or from stdin when --file is not given, and prints the document locator.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := load()
			if outDir != "" {
				cfg.Render.BaseDir = outDir
			}
			// Empty content is valid and renders the header block alone.
			var b []byte
			var err error
			if file != "" {
				b, err = os.ReadFile(file)
			} else {
				b, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			content := string(b)

			r, pool, err := newRenderer(cfg)
			if err != nil {
				return err
			}
			if pool != nil {
				defer pool.Close()
			}
			set := &tools.Set{Renderer: r}
			out, err := set.CreatePDF(cmd.Context(), tools.CreatePDFInput{Title: title, Content: content})
			if err != nil {
				return err
			}
			return printJSON(cmd, out)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "document title (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "file holding the body")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (overrides render.base_dir)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newAskCommand(load func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [message...]",
		Short: "Send one message to the Case Study Agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			cfg.Agent.Enabled = true
			input, err := readInput(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			svc, err := buildServices(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			out, err := svc.Agent.Ask(cmd.Context(), input)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func newIngestCommand(load func() config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Chunk, embed and store .txt, .md or .pdf files for case study retrieval",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			cfg.RAG.Enabled = true
			if err := cfg.RequireRAG(); err != nil {
				return err
			}
			svc, store, err := newRAG(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			rep, err := svc.Ingest(cmd.Context(), args...)
			if perr := printJSON(cmd, rep); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
