package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/abe-nagisa/tacozip/tacozip"
)

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list archive.zip",
		Short: "List the central directory, ghost included",
		Args:  cobra.ExactArgs(1),
		RunE:  a.list,
	}
}

func (a *app) list(c *cobra.Command, args []string) error {
	path, err := expandPath(args[0])
	if err != nil {
		return err
	}
	ar, err := a.archiver()
	if err != nil {
		return err
	}
	entries, err := ar.List(path)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tMETHOD\tCRC32\tCOMPRESSED\tSIZE\tOFFSET")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%08x\t%d\t%d\t%d\n",
			e.Name, methodName(e.Method), e.CRC32, e.CompressedSize64, e.UncompressedSize64, e.HeaderOffset)
	}
	return w.Flush()
}

func methodName(m uint16) string {
	switch m {
	case tacozip.Store:
		return "store"
	case tacozip.Deflate:
		return "deflate"
	}
	return fmt.Sprintf("%d", m)
}
