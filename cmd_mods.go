package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/poachedegg12/SplitProject/internal/modpkg"
)

func (a *app) modsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "mods",
		Short:   "List the installed mods",
		Aliases: []string{"list"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mods, err := modpkg.List(a.cfg.ModsDir)
			if err != nil {
				return err
			}
			if len(mods) == 0 {
				fmt.Fprintf(a.out, "No mods found in %s\n", a.cfg.ModsDir)
				return nil
			}

			for _, m := range mods {
				printMod(a, m)
			}
			fmt.Fprintf(a.out, "\n%s in %s\n", plural(len(mods), "mod", "mods"), a.cfg.ModsDir)
			return nil
		},
	}
}

func printMod(a *app, m *modpkg.Package) {
	headingColor.Fprintln(a.out, m.Name())

	meta := m.Metadata
	if meta != nil {
		var byline []string
		if meta.Author != "" {
			byline = append(byline, "by "+meta.Author)
		}
		if meta.Version != "" {
			byline = append(byline, "v"+meta.Version)
		}
		if meta.GameVersion != "" {
			byline = append(byline, "for game "+meta.GameVersion)
		}
		if len(byline) > 0 {
			fmt.Fprintf(a.out, "  %s\n", strings.Join(byline, ", "))
		}
		if meta.Description != "" && !a.quiet {
			fmt.Fprintf(a.out, "  %s\n", meta.Description)
		}
		if meta.DownloadCount > 0 || meta.LikeCount > 0 {
			fmt.Fprintf(a.out, "  %s downloads, %s likes\n",
				humanize.Comma(int64(meta.DownloadCount)), humanize.Comma(int64(meta.LikeCount)))
		}
	}

	contents := []string{plural(len(m.Patches), "patch", "patches")}
	if len(m.AssetDirs) > 0 {
		contents = append(contents, "assets: "+strings.Join(m.AssetDirs, ", "))
	}
	if len(m.IntegrationFiles) > 0 {
		contents = append(contents, plural(len(m.IntegrationFiles), "integration file", "integration files"))
	}
	if m.HasThumbnail {
		contents = append(contents, "thumbnail")
	}
	fmt.Fprintf(a.out, "  %s\n", strings.Join(contents, "; "))

	if a.verbose {
		fmt.Fprintf(a.out, "  folder: %s\n", m.Dir)
		for _, p := range m.Patches {
			fmt.Fprintf(a.out, "    %s\n", p)
		}
	}
}
