package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/narrata/narrata/internal/api"
	"github.com/narrata/narrata/internal/extraction"
	"github.com/narrata/narrata/internal/toc"
	"github.com/narrata/narrata/internal/types"
)

var (
	entityCategory string
	entitySearch   string
)

var entitiesCmd = &cobra.Command{
	Use:   "entities <book-id>",
	Short: "List extracted entities ranked by evidence",
	Long: `Fetches a book's extracted entities and prints them ranked by total
fact occurrences, with each entity's facts grouped by the part they
were found in, in reading order. Use --category and --search to narrow
the list.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}
		bookID := args[0]

		// The result set only makes sense once extraction has finished:
		// a partial set would rank entities on incomplete evidence.
		proc, err := svc.GetExtractionProcess(cmd.Context(), bookID)
		if err != nil {
			return err
		}
		if err := ensureExtractionComplete(proc); err != nil {
			return err
		}

		entities, err := svc.GetEntities(cmd.Context(), bookID)
		if err != nil {
			return err
		}

		if entityCategory != "" || entitySearch != "" {
			var category types.Category
			if entityCategory != "" {
				category = types.ParseCategory(strings.ToUpper(entityCategory))
			}
			entities = extraction.Filter(entities, category, entitySearch)
		}

		// The part tree supplies reading order and labels for fact groups.
		// Entities still render without it if the hierarchy is unavailable.
		var tree *toc.Tree
		if parts, err := svc.GetTOC(cmd.Context(), bookID); err == nil {
			tree, _ = toc.Build(parts)
		}

		return api.Output(extraction.Aggregate(entities, tree))
	},
}

// ensureExtractionComplete refuses entity aggregation until the book's
// extraction process is complete.
func ensureExtractionComplete(proc types.ExtractionProcess) error {
	switch proc.State() {
	case types.StateComplete:
		return nil
	case types.StateUnrequested:
		return errors.New("extraction has not been requested for this book; run 'narrata extract trigger' first")
	default:
		return fmt.Errorf("extraction is %s (%.1f%% complete); entities are available once it finishes",
			proc.State(), proc.CompletenessValue()*100)
	}
}

func init() {
	entitiesCmd.Flags().StringVar(&entityCategory, "category", "", "filter by entity category")
	entitiesCmd.Flags().StringVar(&entitySearch, "search", "", "filter by name substring (case-insensitive)")
	rootCmd.AddCommand(entitiesCmd)
}
