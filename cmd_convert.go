package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/poachedegg12/SplitProject/internal/modpkg"
)

func (a *app) convertCmd() *cobra.Command {
	var (
		opts modpkg.ConvertOptions
		meta modpkg.Metadata
	)

	cmd := &cobra.Command{
		Use:   "convert <mod>",
		Short: "Rename a mod's patches so they match data.win and the game executable",
		Long: `Mods often ship patches named after the mod rather than the file they
change. convert renames the chosen data patch to data.win.xdelta and the
executable patch to exe.xdelta, and can write mod.ini while it's at it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.DataPatch == "" && opts.ExePatch == "" && meta.Name == "" {
				return fmt.Errorf("nothing to do: give --data, --exe or --name")
			}

			mod, err := a.resolveMod(args[0])
			if err != nil {
				return err
			}
			if meta.Name != "" {
				if mod.Metadata != nil {
					merged := *mod.Metadata
					merged.Name = meta.Name
					if meta.Author != "" {
						merged.Author = meta.Author
					}
					meta = merged
				}
				opts.Metadata = &meta
			}

			if err := modpkg.Convert(mod.Dir, opts); err != nil {
				return err
			}

			converted, err := modpkg.Load(mod.Dir)
			if err != nil {
				return err
			}
			okColor.Fprintf(a.out, "Converted %s\n", converted.Name())
			for _, p := range converted.Patches {
				fmt.Fprintf(a.out, "  %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.DataPatch, "data", "", "Patch to rename to "+modpkg.DataPatchName)
	cmd.Flags().StringVar(&opts.ExePatch, "exe", "", "Patch to rename to "+modpkg.ExePatchName)
	cmd.Flags().StringVar(&meta.Name, "name", "", "Display name to write to "+modpkg.MetadataFile)
	cmd.Flags().StringVar(&meta.Author, "author", "", "Author to write to "+modpkg.MetadataFile)
	return cmd
}
