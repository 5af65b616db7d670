package cmd

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/abe-nagisa/tacozip/tacozip"
)

func (a *app) newGhostCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "ghost",
		Short: "Read or rewrite the ghost pointers of an archive",
	}

	read := &cobra.Command{
		Use:   "read archive.zip",
		Short: "Print the ghost pointers",
		Args:  cobra.ExactArgs(1),
		RunE:  a.ghostRead,
	}
	read.Flags().Bool("all", false, "print unused slots too")

	update := &cobra.Command{
		Use:   "update archive.zip --offsets ... --lengths ...",
		Short: "Rewrite the ghost pointers in place",
		Args:  cobra.ExactArgs(1),
		RunE:  a.ghostUpdate,
	}
	update.Flags().StringSlice("offsets", nil, "pointer offsets")
	update.Flags().StringSlice("lengths", nil, "pointer lengths")
	update.Flags().Bool("keep", false, "replace slot 0 only and keep the other slots")

	cat := &cobra.Command{
		Use:   "cat archive.zip slot",
		Short: "Write the bytes a ghost pointer refers to",
		Args:  cobra.ExactArgs(2),
		RunE:  a.ghostCat,
	}

	c.AddCommand(read, update, cat)
	return c
}

func (a *app) ghostRead(c *cobra.Command, args []string) error {
	path, err := expandPath(args[0])
	if err != nil {
		return err
	}
	all, err := c.Flags().GetBool("all")
	if err != nil {
		return err
	}
	ar, err := a.archiver()
	if err != nil {
		return err
	}
	p, err := ar.ReadGhost(path)
	if err != nil {
		return err
	}
	printPointers(c, p, all)
	return nil
}

func printPointers(c *cobra.Command, p tacozip.PointerArray, all bool) {
	w := c.OutOrStdout()
	fmt.Fprintf(w, "count: %d\n", p.Count())
	for i, ptr := range p.Entries() {
		if i >= p.Count() && !all {
			break
		}
		fmt.Fprintf(w, "%d\t%d\t%d\n", i, ptr.Offset, ptr.Length)
	}
}

func (a *app) ghostUpdate(c *cobra.Command, args []string) error {
	path, err := expandPath(args[0])
	if err != nil {
		return err
	}
	offsets, err := c.Flags().GetStringSlice("offsets")
	if err != nil {
		return err
	}
	lengths, err := c.Flags().GetStringSlice("lengths")
	if err != nil {
		return err
	}
	keep, err := c.Flags().GetBool("keep")
	if err != nil {
		return err
	}
	ar, err := a.archiver()
	if err != nil {
		return err
	}

	if keep {
		offs, err := parseUints(offsets)
		if err != nil {
			return errors.Wrap(err, "offsets")
		}
		lens, err := parseUints(lengths)
		if err != nil {
			return errors.Wrap(err, "lengths")
		}
		if len(offs) != 1 || len(lens) != 1 {
			return errors.New("--keep takes exactly one offset and one length")
		}
		a.log.INFO.Printf("setting slot 0 of %s to %d+%d", path, offs[0], lens[0])
		return ar.UpdateGhostSingle(path, offs[0], lens[0])
	}

	p, err := parsePointers(offsets, lengths)
	if err != nil {
		return err
	}
	a.log.INFO.Printf("rewriting ghost of %s with %d pointers", path, p.Count())
	return ar.UpdateGhost(path, p)
}

func (a *app) ghostCat(c *cobra.Command, args []string) error {
	path, err := expandPath(args[0])
	if err != nil {
		return err
	}
	slot, err := parseSlot(args[1])
	if err != nil {
		return err
	}
	ar, err := a.archiver()
	if err != nil {
		return err
	}
	p, err := ar.ReadGhost(path)
	if err != nil {
		return err
	}
	b, err := ar.ReadPointer(path, p.At(slot))
	if err != nil {
		return err
	}
	_, err = c.OutOrStdout().Write(b)
	return err
}

func parseSlot(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(err, "slot")
	}
	return i, checkSlot(i)
}

func checkSlot(i int) error {
	if i < 0 || i >= tacozip.MaxPointers {
		return errors.Errorf("slot %d out of range 0..%d", i, tacozip.MaxPointers-1)
	}
	return nil
}
