// Command queryctl is a manual smoke-test CLI for the note query pipeline,
// grounded on the cobra command structure used by the pack's openbot CLI
// (cmd/openbot/main.go).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/omars-lab/knowledge-agents/internal/config"
	"github.com/omars-lab/knowledge-agents/internal/deps"
	"github.com/omars-lab/knowledge-agents/internal/models"
	"github.com/omars-lab/knowledge-agents/internal/noteservice"
	"github.com/omars-lab/knowledge-agents/internal/requestid"
)

var apiToken string

func main() {
	root := &cobra.Command{
		Use:   "queryctl",
		Short: "Manual smoke-test CLI for the note query pipeline",
	}
	root.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("QUERYCTL_API_TOKEN"), "bearer token for the LLM proxy")

	root.AddCommand(queryCmd())
	root.AddCommand(healthCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query [question]",
		Short: "Ask a question about your notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			settings := config.Load()
			dependencies := deps.New(settings)
			defer dependencies.DomainWatcher.Close()
			service := noteservice.New(dependencies)

			requestID := requestid.New()
			ctx = requestid.WithID(ctx, requestID, logrus.StandardLogger())

			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetDescription("waiting for answer"),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionSetWriter(os.Stderr),
			)
			stopSpin := make(chan struct{})
			go spin(bar, stopSpin)

			response, headers, err := service.Answer(ctx, models.Query{
				Text:      args[0],
				RequestID: requestID,
				APIToken:  apiToken,
			})
			close(stopSpin)
			bar.Finish()
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return err
			}

			for name, value := range headers {
				fmt.Fprintf(os.Stderr, "%s: %s\n", name, value)
			}

			encoded, _ := json.MarshalIndent(response, "", "  ")
			fmt.Println(string(encoded))
			return nil
		},
	}
}

// spin ticks bar at a fixed rate until stop is closed, giving the operator
// visible feedback while service.Answer blocks on the proxy/vector-store/MCP
// round trips.
func spin(bar *progressbar.ProgressBar, stop <-chan struct{}) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			bar.Add(1)
		case <-stop:
			return
		}
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the vector store is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := config.Load()
			dependencies := deps.New(settings)
			defer dependencies.DomainWatcher.Close()

			ctx, cancel := context.WithTimeout(context.Background(), settings.VectorSearchTimeout)
			defer cancel()

			if err := dependencies.VectorStore.EnsureCollection(ctx, settings.CollectionName, settings.EmbeddingDim()); err != nil {
				return fmt.Errorf("vector store unreachable: %w", err)
			}
			fmt.Println("vector store ok")
			return nil
		},
	}
}
