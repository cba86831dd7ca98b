package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/narwhalmedia/medialibrary/internal/medialibrary/domain"
	"github.com/narwhalmedia/medialibrary/internal/medialibrary/service"
)

var (
	searchQuery string
	searchLimit int
)

var listCmd = &cobra.Command{
	Use:       "list {audio|video|albums|artists|genres|entry-points|banned|search}",
	Short:     "Print the indexed library",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"audio", "video", "albums", "artists", "genres", "entry-points", "banned", "search"},
	RunE:      runList,
}

func init() {
	listCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "Search query for list search")
	listCmd.Flags().IntVar(&searchLimit, "limit", 50, "Maximum search results")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	// Only the query surface is used, so no entry points are rescanned.
	cfg.Library.EntryPoints = nil
	cfg.Library.ReloadInterval = 0

	library := service.New(cfg, log)
	if err := library.Initialize(ctx, cfg.Library.StorageRoot); err != nil {
		return err
	}
	defer library.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	switch args[0] {
	case "audio":
		return listMedia(ctx, w, library.GetAudio)
	case "video":
		return listMedia(ctx, w, library.GetVideos)
	case "search":
		return listMedia(ctx, w, func(ctx context.Context) ([]*domain.Media, error) {
			return library.SearchMedia(ctx, searchQuery, searchLimit)
		})
	case "albums":
		albums, err := library.GetAlbums(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ID\tALBUM\tARTIST\tYEAR\tTRACKS")
		for _, a := range albums {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n", a.ID, a.Title, a.ArtistName, a.Year, a.NbTracks)
		}
	case "artists":
		artists, err := library.GetArtists(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ID\tARTIST\tALBUMS\tTRACKS")
		for _, a := range artists {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", a.ID, a.Name, a.NbAlbums, a.NbTracks)
		}
	case "genres":
		genres, err := library.GetGenres(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ID\tGENRE\tTRACKS")
		for _, g := range genres {
			fmt.Fprintf(w, "%d\t%s\t%d\n", g.ID, g.Name, g.NbTracks)
		}
	case "entry-points":
		eps, err := library.EntryPoints(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "PATH\tLAST DISCOVERED")
		for _, ep := range eps {
			last := "never"
			if ep.LastDiscoveredAt != nil {
				last = ep.LastDiscoveredAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%s\t%s\n", ep.Path, last)
		}
	case "banned":
		banned, err := library.BannedFolders(ctx)
		if err != nil {
			return err
		}
		for _, b := range banned {
			fmt.Fprintln(w, b.Path)
		}
	}
	return nil
}

func listMedia(ctx context.Context, w *tabwriter.Writer, fetch func(context.Context) ([]*domain.Media, error)) error {
	media, err := fetch(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "ID\tTYPE\tTITLE\tDESCRIPTION\tPLAYS")
	for _, m := range media {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", m.ID, m.Type, m.GetTitle(), m.Description(), m.PlayCount)
	}
	return nil
}
