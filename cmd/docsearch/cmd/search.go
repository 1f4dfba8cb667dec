package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WhiteShieldPT/docsearch-pt/internal/query"
	"github.com/WhiteShieldPT/docsearch-pt/internal/store"
)

func newSearchCmd() *cobra.Command {
	var (
		folder    string
		exact     bool
		forceText bool
		size      int
		asJSON    bool
		nif       string
		dateFrom  string
		dateTo    string
		minTotal  float64
		maxTotal  float64
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search indexed documents",
		Long: `Search indexed documents. The query is classified by shape: a
9-digit number searches tax ids, PT50... searches IBANs, 123,45
searches totals, FT 2024/001 searches invoice numbers, and anything
else matches names and text.

Without a query, the structured filter flags apply instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := setupLogging(cfg)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.IndexPath(), logger)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			var filters query.Filters
			filters.TaxID = nif
			filters.DateFrom = dateFrom
			filters.DateTo = dateTo
			if cmd.Flags().Changed("min-total") {
				filters.MinTotal = &minTotal
			}
			if cmd.Flags().Changed("max-total") {
				filters.MaxTotal = &maxTotal
			}

			opts := query.Options{
				Mode:      query.ModeFuzzy,
				Folder:    cfg.NormalizeFolder(folder),
				ForceText: forceText,
			}
			if exact {
				opts.Mode = query.ModeExact
			}

			cls := query.NewClassifier(0).Classify(strings.Join(args, " "))
			plan := query.BuildPlan(cls, filters, opts)

			if size <= 0 || size > cfg.Search.MaxResults {
				size = cfg.Search.MaxResults
			}
			res, err := st.Search(cmd.Context(), plan, size)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResults(res)
			return nil
		},
	}

	cmd.Flags().StringVar(&folder, "folder", "", "Restrict to a folder")
	cmd.Flags().BoolVar(&exact, "exact", false, "Exact matching for names and text")
	cmd.Flags().BoolVar(&forceText, "force-text", false, "Search the query as text across all fields")
	cmd.Flags().IntVar(&size, "size", 0, "Maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "JSON output")
	cmd.Flags().StringVar(&nif, "nif", "", "Filter by tax id")
	cmd.Flags().StringVar(&dateFrom, "from", "", "Filter by document date, start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&dateTo, "to", "", "Filter by document date, end (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&minTotal, "min-total", 0, "Filter by minimum total")
	cmd.Flags().Float64Var(&maxTotal, "max-total", 0, "Filter by maximum total")
	return cmd
}

func printResults(res *store.Results) {
	if res.Total == 0 {
		fmt.Println("No results.")
		return
	}
	fmt.Printf("%d result(s) in %s\n\n", res.Total, res.Took)
	for i, h := range res.Hits {
		fmt.Printf("%2d. %s  (%.2f)\n", i+1, field(h, query.FieldFilename), h.Score)
		fmt.Printf("    %s\n", field(h, query.FieldPath))

		var parts []string
		if v := field(h, query.FieldTaxID); v != "" {
			parts = append(parts, "NIF "+v)
		}
		if v := field(h, query.FieldDate); v != "" {
			parts = append(parts, v)
		}
		if v, ok := h.Fields[query.FieldTotal].(float64); ok {
			parts = append(parts, fmt.Sprintf("%.2f EUR", v))
		}
		if v := field(h, query.FieldSupplier); v != "" {
			parts = append(parts, v)
		}
		if len(parts) > 0 {
			fmt.Printf("    %s\n", strings.Join(parts, "  |  "))
		}
		if h.Fragment != "" {
			fmt.Printf("    %s\n", h.Fragment)
		}
		fmt.Println()
	}
}

func field(h store.Hit, name string) string {
	v, _ := h.Fields[name].(string)
	return v
}
