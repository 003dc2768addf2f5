package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"closetfit/internal/blob"
	"closetfit/internal/catalog"
	"closetfit/internal/core"
	"closetfit/pkg/domain"
)

var catalogImportFlags struct {
	images string
}

var catalogListFlags struct {
	category string
	search   string
	sort     string
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the clothing catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import catalog items from a YAML seed file",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogImport,
}

var catalogDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete catalog items by id",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCatalogDelete,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog items",
	RunE:  runCatalogList,
}

func init() {
	catalogImportCmd.Flags().StringVar(&catalogImportFlags.images, "images", "", "directory holding item images to upload into the blob store")

	f := catalogListCmd.Flags()
	f.StringVar(&catalogListFlags.category, "category", "", "only items of this category")
	f.StringVar(&catalogListFlags.search, "search", "", "case-insensitive name search")
	f.StringVar(&catalogListFlags.sort, "sort", core.SortNewest, "newest, oldest or name")

	catalogCmd.AddCommand(catalogImportCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogDeleteCmd)
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	var opts []catalog.ImportOption
	if catalogImportFlags.images != "" {
		opts = append(opts, catalog.WithImages(catalogImportFlags.images, blob.NewImages(a.blobs)))
	}
	stats, err := catalog.Import(cmd.Context(), a.catalog, f, time.Now().UTC(), opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items into %s catalog\n", stats.Items, a.cfg.Catalog.Driver)
	if catalogImportFlags.images != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d images to %s blob store\n", stats.Images, a.blobs.Driver())
	}
	return nil
}

func runCatalogDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var missing []string
	for _, id := range args {
		ok, err := a.catalog.Delete(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		if !ok {
			missing = append(missing, id)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrItemNotFound, strings.Join(missing, ", "))
	}
	return nil
}

func runCatalogList(cmd *cobra.Command, _ []string) error {
	filter := core.Filter{
		Category: domain.Category(catalogListFlags.category),
		Search:   catalogListFlags.search,
		Sort:     catalogListFlags.sort,
	}
	if err := filter.Validate(); err != nil {
		return err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	items, err := a.catalog.FetchAllItems(cmd.Context(), filter)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tUPLOADED")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.DisplayName(), it.Category, it.UploadedAt.Format(time.DateOnly))
	}
	return tw.Flush()
}
