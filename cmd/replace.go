package cmd

import (
	"github.com/spf13/cobra"
)

func (a *app) newReplaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replace archive.zip name newsrc",
		Short: "Overwrite one entry with content of the same stored size",
		Args:  cobra.ExactArgs(3),
		RunE:  a.replace,
	}
}

func (a *app) replace(c *cobra.Command, args []string) error {
	path, err := expandPath(args[0])
	if err != nil {
		return err
	}
	src, err := expandPath(args[2])
	if err != nil {
		return err
	}
	ar, err := a.archiver()
	if err != nil {
		return err
	}
	a.log.INFO.Printf("replacing %s in %s with %s", args[1], path, src)
	return ar.ReplaceFromFile(path, args[1], src)
}
