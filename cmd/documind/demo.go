package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-documind-backend/internal/autosave"
	"github.com/tbourn/go-documind-backend/internal/client"
	"github.com/tbourn/go-documind-backend/internal/domain"
)

// demoCmd walks one editing session against a running server: bootstrap
// the demo user, create a document, type into it through an autosave
// session, attach a source, ask for a summary and append it.
func demoCmd() *cobra.Command {
	var (
		baseURL string
		offline bool
		timeout time.Duration
	)
	command := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted editing session against a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if baseURL == "" {
				baseURL = "http://localhost:" + cfg.Port + cfg.APIBasePath
			}
			ctx := cmd.Context()

			state := client.NewAppState(
				client.New(baseURL, client.WithTimeout(timeout)),
				client.WithOffline(offline),
				client.WithLogger(logger),
				client.WithDemoUser(cfg.Demo.Email, cfg.Demo.Name),
			)
			user, err := state.Bootstrap(ctx)
			if err != nil {
				return err
			}
			logger.Info().Int64("user_id", user.ID).Int("documents", len(state.Documents())).Msg("bootstrapped")

			doc, err := state.CreateDocument(ctx, "", "")
			if err != nil {
				return err
			}

			session := autosave.New(state, *doc,
				autosave.WithOffline(offline),
				autosave.WithLogger(logger),
				autosave.OnSaved(state.ApplyDocument),
			)
			defer session.Close()

			session.Edit("Photosynthesis", "<p>Plants turn light into chemical energy.</p>")
			if err := session.SaveNow(ctx); err != nil {
				return err
			}

			if _, err := state.AddSource(ctx, client.SourceInput{
				Title:      "Lecture notes",
				Content:    "Chlorophyll absorbs light; the Calvin cycle fixes carbon.",
				SourceType: domain.SourceTypeText,
			}); err != nil {
				return err
			}

			resp, err := state.RequestAssistance(ctx, "Summarize the document", "", domain.AssistanceSummarize)
			if err != nil {
				return err
			}
			final, err := state.AppendAssistance(ctx, *resp)
			if err != nil {
				return err
			}
			if final == nil {
				return fmt.Errorf("document %d disappeared during the session", doc.ID)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(final)
		},
	}
	command.Flags().StringVar(&baseURL, "base-url", "", "API root (default http://localhost:$PORT$API_BASE_PATH)")
	command.Flags().BoolVar(&offline, "offline", false, "substitute local results when the server is unreachable")
	command.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "per-request timeout")
	return command
}
