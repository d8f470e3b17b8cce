package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/narrata/narrata/internal/api"
	"github.com/narrata/narrata/internal/home"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Book management commands",
}

var booksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded books",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}

		books, err := svc.ListBooks(cmd.Context())
		if err != nil {
			return err
		}
		return api.Output(books)
	},
}

var booksDeleteCmd = &cobra.Command{
	Use:   "delete <book-id>",
	Short: "Delete a book and everything derived from it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}

		deleted, err := svc.DeleteBook(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return api.Output(deleted)
	},
}

var booksCoverCmd = &cobra.Command{
	Use:   "cover <book-id>",
	Short: "Cache a book's cover image locally and print its path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, err := newService()
		if err != nil {
			return err
		}
		bookID := args[0]

		books, err := svc.ListBooks(cmd.Context())
		if err != nil {
			return err
		}

		var encoded string
		found := false
		for _, b := range books {
			if b.ID == bookID {
				encoded = b.CoverImageBase64
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("no book with id %s", bookID)
		}
		if encoded == "" {
			return fmt.Errorf("book %s has no cover image", bookID)
		}

		img, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("failed to decode cover image: %w", err)
		}

		dir, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := dir.EnsureExists(); err != nil {
			return err
		}
		path := dir.CoverPath(bookID)
		if err := os.WriteFile(path, img, 0o644); err != nil {
			return fmt.Errorf("failed to write cover image: %w", err)
		}

		fmt.Println(path)
		return nil
	},
}

func init() {
	booksCmd.AddCommand(booksListCmd)
	booksCmd.AddCommand(booksDeleteCmd)
	booksCmd.AddCommand(booksCoverCmd)
	rootCmd.AddCommand(booksCmd)
}
