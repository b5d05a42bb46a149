package main

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/querybot/internal/intent"
	"github.com/randalmurphal/querybot/internal/session"
)

// askOutput is what ask prints.
type askOutput struct {
	SessionID            string             `json:"session_id"`
	Intent               session.Intent     `json:"intent"`
	Answer               string             `json:"answer"`
	ConfidenceScore      float64            `json:"confidence_score"`
	RetrievedDocs        []session.Document `json:"retrieved_docs"`
	RetrievalError       string             `json:"retrieval_error,omitempty"`
	ProcessingError      string             `json:"processing_error,omitempty"`
	ProcessingSuccessful bool               `json:"processing_successful"`
	RoutingStats         intent.Stats       `json:"routing_stats"`
}

func newAskCommand(root *rootOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer one question and print the result as JSON",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			logger, logCloser, err := newLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer logCloser.Close()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}

			rt, err := buildRuntime(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			res := rt.engine.Process(cmd.Context(), sessionID, strings.Join(args, " "))
			st := res.State

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(askOutput{
				SessionID:            st.SessionID,
				Intent:               st.Intent,
				Answer:               st.Answer,
				ConfidenceScore:      st.Confidence,
				RetrievedDocs:        st.Documents,
				RetrievalError:       st.RetrievalError,
				ProcessingError:      st.ProcessingError,
				ProcessingSuccessful: st.ProcessingSuccessful,
				RoutingStats:         res.Stats,
			}); err != nil {
				return err
			}
			if !st.ProcessingSuccessful {
				return errors.New("query processing failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (default: random)")
	return cmd
}
