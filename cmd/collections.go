// file: cmd/collections.go
// version: 1.0.0
// guid: 5c7e9a1b-3d5f-4a6b-8c0d-2e4f6a8b0c1d

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/jdfalk/playlist-importer/internal/config"
	"github.com/jdfalk/playlist-importer/internal/database"
	"github.com/jdfalk/playlist-importer/internal/playlist"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newCollectionsCmd() *cobra.Command {
	var importedOnly bool

	collectionsCmd := &cobra.Command{
		Use:   "collections [query]",
		Short: "List collections, optionally filtered by a fuzzy query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			all, err := store.GetAllCollections()
			if err != nil {
				return fmt.Errorf("failed to list collections: %w", err)
			}
			if importedOnly {
				filtered := make([]database.Collection, 0, len(all))
				for _, c := range all {
					if c.IsImported() {
						filtered = append(filtered, c)
					}
				}
				all = filtered
			}

			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			found := playlist.Search(all, query)
			if len(found) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No collections found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTRACKS\tIMPORTED")
			for _, c := range found {
				tracks, err := store.GetTracks(c.ID)
				if err != nil {
					return fmt.Errorf("failed to load tracks of %q: %w", c.Name, err)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%t\n", c.ID, c.Name, len(tracks), c.IsImported())
			}
			return w.Flush()
		},
	}
	collectionsCmd.Flags().BoolVar(&importedOnly, "imported", false, "only list collections created by imports")
	return collectionsCmd
}

func newExportCmd() *cobra.Command {
	var outDir string
	var importedOnly bool

	exportCmd := &cobra.Command{
		Use:   "export [collection-id...]",
		Short: "Write collections as M3U playlists",
		Long: `Export writes the given collections, or every collection when none
are given, as <name>.m3u files into the output directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			dir := outDir
			if dir == "" {
				dir = config.AppConfig.ExportDir
			}
			if dir == "" {
				dir = "playlists"
			}

			fs := afero.NewOsFs()
			var paths []string
			if len(args) == 0 {
				paths, err = playlist.ExportAll(store, fs, dir, importedOnly)
				if err != nil {
					return err
				}
			} else {
				for _, id := range args {
					path, err := playlist.ExportCollection(store, fs, dir, id)
					if err != nil {
						return err
					}
					paths = append(paths, path)
				}
			}

			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d playlists to %s\n", len(paths), dir)
			return nil
		},
	}
	exportCmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default export_dir or ./playlists)")
	exportCmd.Flags().BoolVar(&importedOnly, "imported", false, "only export collections created by imports")
	return exportCmd
}
