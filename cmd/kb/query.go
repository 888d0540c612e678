package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rag-pipeline/internal/llm"
	"github.com/rag-pipeline/internal/models"
	"github.com/rag-pipeline/internal/rag"
	"github.com/spf13/cobra"
)

var (
	queryTopK     int
	queryGenerate bool
	queryContext  bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve the most relevant chunks for a query",
	Long: `Retrieve the top matches for a query from the vector store and print them as JSON.
With --generate the matches are passed to the LLM and its answer is printed instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), strings.Join(args, " "), cmd.OutOrStdout())
	},
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of matches (defaults to RAG_TOP_K)")
	queryCmd.Flags().BoolVar(&queryGenerate, "generate", false, "answer the query with the LLM using the matches as context")
	queryCmd.Flags().BoolVar(&queryContext, "context", false, "print the formatted prompt context instead of JSON")
}

func runQuery(ctx context.Context, query string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	req := models.RetrieveRequest{Query: query}
	if queryTopK > 0 {
		req.TopK = &queryTopK
	}

	result := a.pipeline.Retrieve(ctx, req)
	if result.Error != "" {
		return fmt.Errorf("retrieve failed: %s", result.Error)
	}

	switch {
	case queryGenerate:
		client := llm.NewClient(a.cfg.GeminiAPIKey, a.cfg.LLMModel, a.cfg.LLMTimeout, a.logger)
		defer client.Close()

		llmReq := &models.LLMRequest{Query: query, Context: rag.Contexts(result.Matches)}
		resp, err := client.Generate(ctx, llmReq)
		if err != nil {
			if !a.cfg.DevMockLLM {
				return fmt.Errorf("generation failed: %w", err)
			}
			a.logger.Warn().Err(err).Msg("Generation failed, printing mock response")
			_, err = fmt.Fprintln(out, llm.MockResponse(llmReq, ""))
			return err
		}
		_, err = fmt.Fprintln(out, resp.Text)
		return err
	case queryContext:
		_, err := fmt.Fprintln(out, a.pipeline.FormatContext(result.Matches))
		return err
	default:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}
