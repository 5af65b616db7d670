package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/abe-nagisa/tacozip/tacozip"
)

func (a *app) newFetchCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "fetch URL [--slot i]",
		Short: "Read the ghost of a remote archive with HTTP range requests",
		Long: `Read the ghost of a remote archive with one range request. With --slot,
download the bytes that pointer refers to instead of printing the ghost.`,
		Args: cobra.ExactArgs(1),
		RunE: a.fetch,
	}
	c.Flags().Int("slot", -1, "pointer to download")
	c.Flags().Duration("timeout", 30*time.Second, "HTTP timeout")
	return c
}

func (a *app) fetch(c *cobra.Command, args []string) error {
	url := args[0]
	slot, err := c.Flags().GetInt("slot")
	if err != nil {
		return err
	}
	timeout, err := c.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: timeout}
	ctx := context.Background()

	a.log.INFO.Printf("reading ghost of %s", url)
	p, err := tacozip.ReadGhostURL(ctx, client, url)
	if err != nil {
		return err
	}
	if slot < 0 {
		printPointers(c, p, false)
		return nil
	}
	if err := checkSlot(slot); err != nil {
		return err
	}
	ptr := p.At(slot)
	a.log.INFO.Printf("downloading slot %d: %d+%d", slot, ptr.Offset, ptr.Length)
	b, err := tacozip.FetchPointer(ctx, client, url, ptr)
	if err != nil {
		return err
	}
	_, err = c.OutOrStdout().Write(b)
	return err
}
