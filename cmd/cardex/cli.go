package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/cardex/internal/domain"
	"github.com/kailas-cloud/cardex/internal/domain/card"
	"github.com/kailas-cloud/cardex/internal/domain/protocol"
	"github.com/kailas-cloud/cardex/internal/usecase/worker"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the local store with the feed and report what changed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withSession(cmd, func(ctx context.Context, sess *worker.Session) error {
			quiet, _ := cmd.Flags().GetBool("quiet")
			value, err := sess.LoadDB(ctx, func(p protocol.Response) {
				if !quiet {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %d/%d\n", p.Phase, p.Current, p.Total)
				}
			})
			if err != nil {
				return err
			}
			lv, _ := value.(protocol.LoadValue)
			mode := "online"
			if lv.Offline {
				mode = "offline"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d cards from %d chunks (%s)\n", lv.Cards, lv.Chunks, mode)
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search the catalog",
	Long: `search loads the catalog from the local store (syncing with the feed first)
and prints one page of matches. Terms are joined with spaces, so

  cardex search t:goblin 'o:"draw a card"' cmc<=2

runs the query t:goblin o:"draw a card" cmc<=2.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		skip, _ := flags.GetInt("skip")
		take, _ := flags.GetInt("take")
		sortKey, _ := flags.GetString("sort")
		dir, _ := flags.GetString("order")
		asJSON, _ := flags.GetBool("json")

		return withSession(cmd, func(ctx context.Context, sess *worker.Session) error {
			if _, err := sess.LoadDB(ctx, nil); err != nil {
				return err
			}
			value, err := sess.SearchCards(ctx, protocol.Request{
				Query: strings.Join(args, " "),
				Skip:  skip,
				Take:  take,
				Sort:  sortKey,
				Order: dir,
			})
			if err != nil {
				return err
			}
			page, _ := value.(protocol.SearchValue)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), page)
			}
			return printPage(cmd.OutOrStdout(), page, skip)
		})
	},
}

var findCmd = &cobra.Command{
	Use:   "find <name>",
	Short: "Look up a card by exact name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, sess *worker.Session) error {
			if _, err := sess.LoadDB(ctx, nil); err != nil {
				return err
			}
			value, err := sess.FindCard(ctx, args[0])
			if err != nil {
				return err
			}
			c, _ := value.(*card.Card)
			if c == nil {
				return fmt.Errorf("%w: %q", domain.ErrCardNotFound, args[0])
			}
			return writeJSON(cmd.OutOrStdout(), c)
		})
	},
}

func init() {
	syncCmd.Flags().Bool("quiet", false, "do not print load progress")

	searchCmd.Flags().Int("skip", 0, "number of matches to skip")
	searchCmd.Flags().Int("take", 20, "page size")
	searchCmd.Flags().String("sort", "name", "sort key: name, cmc, power, toughness, type, id")
	searchCmd.Flags().String("order", "asc", "sort order: asc or desc")
	searchCmd.Flags().Bool("json", false, "print the page as JSON")

	rootCmd.AddCommand(syncCmd, searchCmd, findCmd)
}

// withSession runs fn against an in-process worker, the same engine the
// websocket API serves.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, sess *worker.Session) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	in := make(chan protocol.Request, a.cfg.Worker.InboxSize)
	out := make(chan protocol.Response, a.cfg.Worker.InboxSize)
	done := make(chan error, 1)
	go func() {
		done <- a.newWorker().Run(ctx, in, out)
		close(out)
	}()

	sess := worker.NewSession(in, out)
	err = fn(ctx, sess)

	close(in)
	if runErr := <-done; runErr != nil && !errors.Is(runErr, context.Canceled) && err == nil {
		err = runErr
	}
	return err
}

func printPage(w io.Writer, page protocol.SearchValue, skip int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, c := range page.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", skip+i+1, c.Name, c.ManaCost, c.Type)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d matches\n", len(page.Results), page.Total)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
