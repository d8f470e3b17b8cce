package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/narrata/narrata/internal/api"
	"github.com/narrata/narrata/internal/toc"
	"github.com/narrata/narrata/internal/types"
)

var tocCmd = &cobra.Command{
	Use:   "toc",
	Short: "Inspect and reclassify a book's table of contents",
}

var tocShowCmd = &cobra.Command{
	Use:   "show <book-id>",
	Short: "Print the part hierarchy with narrative markers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}

		parts, err := svc.GetTOC(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		tree, err := toc.Build(parts)
		if err != nil {
			return err
		}

		tree.Walk(func(part types.BookPart, depth int) bool {
			marker := " "
			if part.IsStoryPart {
				marker = "*"
			}
			fmt.Printf("%s %s%s (%s)\n", marker, strings.Repeat("  ", depth), part.Label, part.ID)
			return true
		})
		return nil
	},
}

var tocPartsCmd = &cobra.Command{
	Use:   "parts <book-id>",
	Short: "List parts in reading order with content snippets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cfg, err := newService()
		if err != nil {
			return err
		}

		parts, err := svc.GetBookParts(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		tree, err := toc.Build(parts)
		if err != nil {
			return err
		}
		cache := toc.NewSnippetCache(cfg.Display.SnippetLength)

		type partRow struct {
			ID          string `json:"id" yaml:"id"`
			Label       string `json:"label" yaml:"label"`
			Depth       int    `json:"depth" yaml:"depth"`
			IsStoryPart bool   `json:"is_story_part" yaml:"is_story_part"`
			Snippet     string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
		}

		var rows []partRow
		tree.Walk(func(part types.BookPart, depth int) bool {
			rows = append(rows, partRow{
				ID:          part.ID,
				Label:       part.Label,
				Depth:       depth,
				IsStoryPart: part.IsStoryPart,
				Snippet:     cache.Snippet(part),
			})
			return true
		})
		return api.Output(rows)
	},
}

var setStoryFlag bool

var tocSetStoryCmd = &cobra.Command{
	Use:   "set-story <part-id>",
	Short: "Mark or unmark a part as narrative content",
	Long: `Reclassifies a single book part. The change is pushed to the server;
if the server rejects it the local view is left untouched. Pass
--story=false to unmark a part.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cfg, err := newService()
		if err != nil {
			return err
		}
		partID := args[0]

		// The part tells us which book's hierarchy to load.
		part, err := svc.GetBookPart(cmd.Context(), partID)
		if err != nil {
			return err
		}

		parts, err := svc.GetBookParts(cmd.Context(), part.BookID)
		if err != nil {
			return err
		}
		tree, err := toc.Build(parts)
		if err != nil {
			return err
		}

		cache := toc.NewSnippetCache(cfg.Display.SnippetLength)
		toggler := toc.NewToggler(svc, tree, cache, slog.Default())
		if err := toggler.SetStoryPart(cmd.Context(), partID, setStoryFlag); err != nil {
			return err
		}

		updated, _ := tree.Part(partID)
		return api.Output(updated)
	},
}

func init() {
	tocSetStoryCmd.Flags().BoolVar(&setStoryFlag, "story", true, "whether the part is narrative content")

	tocCmd.AddCommand(tocShowCmd)
	tocCmd.AddCommand(tocPartsCmd)
	tocCmd.AddCommand(tocSetStoryCmd)
	rootCmd.AddCommand(tocCmd)
}
