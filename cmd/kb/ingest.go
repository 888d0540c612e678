package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var ingestFilename string

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>|-",
	Short: "Chunk, embed and store a text file",
	Long:  `Read a text file (or stdin when the argument is "-") and add its chunks to the vector store.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context(), args[0], cmd.OutOrStdout())
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFilename, "filename", "", "filename recorded in chunk metadata (defaults to the file's base name)")
}

func runIngest(ctx context.Context, source string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		text []byte
		err  error
	)
	name := ingestFilename
	if source == "-" {
		text, err = io.ReadAll(os.Stdin)
	} else {
		text, err = os.ReadFile(source)
		if name == "" {
			name = filepath.Base(source)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result := a.pipeline.Ingest(ctx, string(text), name)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if !result.OK {
		return fmt.Errorf("ingest failed: %s", result.Detail)
	}
	return nil
}
