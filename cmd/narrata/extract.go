package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/narrata/narrata/internal/api"
	"github.com/narrata/narrata/internal/extraction"
	"github.com/narrata/narrata/internal/session"
	"github.com/narrata/narrata/internal/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Trigger and follow server-side entity extraction",
}

var extractTriggerCmd = &cobra.Command{
	Use:   "trigger <book-id>",
	Short: "Request entity extraction for a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cfg, err := newService()
		if err != nil {
			return err
		}

		tracker := extraction.NewTracker(svc, args[0], extraction.TrackerConfig{
			Interval:         cfg.PollInterval(),
			FailureThreshold: cfg.Poll.FailureThreshold,
			Logger:           slog.Default(),
		})
		if err := tracker.Trigger(cmd.Context()); err != nil {
			if errors.Is(err, extraction.ErrAlreadyRequested) {
				return fmt.Errorf("extraction already requested for book %s: %w", args[0], err)
			}
			return err
		}

		fmt.Printf("Extraction requested for book %s\n", args[0])
		return nil
	},
}

var extractStatusCmd = &cobra.Command{
	Use:   "status <book-id>",
	Short: "Show the current extraction state and time estimate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cfg, err := newService()
		if err != nil {
			return err
		}

		proc, err := svc.GetExtractionProcess(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		type statusRow struct {
			BookID       string  `json:"book_id" yaml:"book_id"`
			State        string  `json:"state" yaml:"state"`
			Completeness float64 `json:"completeness" yaml:"completeness"`
			Remaining    string  `json:"remaining,omitempty" yaml:"remaining,omitempty"`
		}
		row := statusRow{
			BookID:       args[0],
			State:        string(proc.State()),
			Completeness: proc.CompletenessValue(),
		}
		if proc.State() == types.StateInProgress && proc.RequestedAt != nil {
			estimator := extraction.Estimator{CorrectionSlope: cfg.Progress.CorrectionSlope}
			est := estimator.Estimate(proc.CompletenessValue(), *proc.RequestedAt, time.Now())
			if est.HasRemaining {
				row.Remaining = extraction.FormatRemaining(est.Remaining)
			}
		}
		return api.Output(row)
	},
}

var extractWatchCmd = &cobra.Command{
	Use:   "watch <book-id>",
	Short: "Poll extraction progress until it completes",
	Long: `Polls the extraction process once per interval and prints each update
with an estimated time remaining. Exits when the process completes,
on interrupt, or after too many consecutive poll failures.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cfg, err := newService()
		if err != nil {
			return err
		}
		bookID := args[0]

		registry := session.NewRegistry()
		ctx, token := registry.Begin(cmd.Context(), session.ResourceProcess, bookID)

		tracker := extraction.NewTracker(svc, bookID, extraction.TrackerConfig{
			Interval:         cfg.PollInterval(),
			FailureThreshold: cfg.Poll.FailureThreshold,
			Logger:           slog.Default(),
		})

		estimator := extraction.Estimator{CorrectionSlope: cfg.Progress.CorrectionSlope}
		tracker.OnSample(func(s extraction.Sample) {
			printSample(estimator, s)
		})

		err = tracker.Run(ctx)
		if !token.Commit() {
			return nil
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if errors.Is(err, extraction.ErrPollingStalled) {
				return fmt.Errorf("gave up after %d consecutive poll failures: %w",
					cfg.Poll.FailureThreshold, err)
			}
			return err
		}

		fmt.Printf("Extraction complete for book %s\n", bookID)
		return nil
	},
}

func printSample(estimator extraction.Estimator, s extraction.Sample) {
	proc := s.Process
	switch proc.State() {
	case types.StateUnrequested:
		fmt.Println("Extraction has not been requested")
	case types.StateRequested:
		fmt.Println("Waiting for extraction to start")
	case types.StateInProgress:
		if proc.RequestedAt == nil {
			fmt.Printf("Completion: %.1f%%\n", proc.CompletenessValue()*100)
			return
		}
		est := estimator.Estimate(proc.CompletenessValue(), *proc.RequestedAt, s.ObservedAt)
		line := est.PercentString()
		if est.HasRemaining {
			line += " " + est.RemainingString()
		}
		fmt.Println(line)
	case types.StateComplete:
		fmt.Println("Completion: 100.0%")
	}
}

func init() {
	extractCmd.AddCommand(extractTriggerCmd)
	extractCmd.AddCommand(extractStatusCmd)
	extractCmd.AddCommand(extractWatchCmd)
	rootCmd.AddCommand(extractCmd)
}
