package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scrapeURL   string
	scrapeGroup string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape a single page into a new group",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		result, err := initScraper(st).Run(ctx, scrapeURL, scrapeGroup)
		if err != nil {
			return eris.Wrap(err, "scrape")
		}

		zap.L().Info("scrape finished",
			zap.String("group", result.GroupName),
			zap.Int("books_scraped", result.BooksScraped),
			zap.Int("books_found", result.BooksFound),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeURL, "url", "", "page URL to scrape (required)")
	scrapeCmd.Flags().StringVar(&scrapeGroup, "group", "", "name for the new group (required)")
	_ = scrapeCmd.MarkFlagRequired("url")
	_ = scrapeCmd.MarkFlagRequired("group")
	rootCmd.AddCommand(scrapeCmd)
}
