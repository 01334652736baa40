package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rzbill/catalog/internal/catalog"
	"github.com/rzbill/catalog/internal/collector"
	"github.com/rzbill/catalog/internal/cursor"
	logpkg "github.com/rzbill/catalog/pkg/log"
)

type entryOutput struct {
	URL             string          `json:"url"`
	Type            string          `json:"type"`
	CommitID        string          `json:"commitId"`
	CommitTimestamp string          `json:"commitTimeStamp"`
	Extra           catalog.Extra   `json:"extra,omitempty"`
	Document        json.RawMessage `json:"document,omitempty"`
}

// NewCollectCommand constructs the `collect` command which replays a
// catalog over HTTP and prints one JSON line per item.
func NewCollectCommand(baseURL BaseURLFunc) *cobra.Command {
	var (
		index      string
		cursorName string
		from       string
		batchSize  int
		filter     string
		fetchDocs  bool
		follow     bool
		interval   time.Duration
		passes     int
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Replay catalog items committed after a cursor",
		Long: "collect reads the catalog root index and prints every item committed " +
			"strictly after the starting cursor, oldest first. With --cursor the " +
			"position is loaded from and saved to a named cursor on the server.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cur cursor.ReadWriter
			switch {
			case cursorName != "" && from != "":
				return fmt.Errorf("--cursor and --from are mutually exclusive")
			case cursorName != "":
				cur = newHTTPCursor(cursorURL(baseURL, cursorName))
			default:
				start := cursor.Zero
				if from != "" {
					c, err := cursor.Parse(from)
					if err != nil {
						return fmt.Errorf("invalid --from: %w", err)
					}
					start = c
				}
				cur = cursor.NewMemory(start)
			}
			if index == "" {
				discovered, err := discoverIndex(cmd.Context(), baseURL)
				if err != nil {
					return fmt.Errorf("discover index (or pass --index): %w", err)
				}
				index = discovered
			}

			fetcher := collector.NewHTTPFetcher(timeout)
			out := cmd.OutOrStdout()
			proc := collector.ProcessorFunc(func(ctx context.Context, f collector.Fetcher, items []collector.Entry, _ json.RawMessage) error {
				for _, e := range items {
					line := entryOutput{
						URL:             e.Address,
						Type:            e.Type,
						CommitID:        e.CommitID,
						CommitTimestamp: catalog.FormatTimestamp(e.CommitTimestamp),
						Extra:           e.Content,
					}
					if fetchDocs {
						doc, err := f.Fetch(ctx, e.Address)
						if err != nil {
							return err
						}
						line.Document = doc
					}
					if err := printJSON(out, line); err != nil {
						return err
					}
				}
				return nil
			})
			c, err := collector.New(collector.Options{
				BatchSize: batchSize,
				Processor: proc,
				Filter:    filter,
				Logger:    logpkg.NewNopLogger(),
			})
			if err != nil {
				return err
			}
			if follow {
				return c.Follow(cmd.Context(), collector.FollowOptions{
					Fetcher:  fetcher,
					Index:    index,
					Cursor:   cur,
					Interval: interval,
					Passes:   passes,
				})
			}
			next, err := c.Sync(cmd.Context(), fetcher, index, cur)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "cursor: %s\n", next)
			return nil
		},
	}
	cmd.Flags().StringVar(&index, "index", "", "Root index URL (default: the index advertised by the server at <api>/v1/catalog)")
	cmd.Flags().StringVar(&cursorName, "cursor", "", "Named server cursor to resume from and advance")
	cmd.Flags().StringVar(&from, "from", "", "Start after this timestamp (RFC3339); default is the beginning")
	cmd.Flags().IntVar(&batchSize, "batch-size", collector.DefaultBatchSize, "Items per processing batch")
	cmd.Flags().StringVar(&filter, "filter", "", "CEL expression selecting items, e.g. item_type == \"PackageDetails\"")
	cmd.Flags().BoolVar(&fetchDocs, "documents", false, "Fetch and print each item's document")
	cmd.Flags().BoolVar(&follow, "follow", false, "Keep polling for new commits")
	cmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "Pause between passes when following")
	cmd.Flags().IntVar(&passes, "passes", 0, "Stop following after this many successful passes (0 = unlimited)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP request timeout")
	return cmd
}
