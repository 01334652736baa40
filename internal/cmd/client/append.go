package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rzbill/catalog/internal/catalog"
	cfgpkg "github.com/rzbill/catalog/internal/config"
	"github.com/rzbill/catalog/internal/runtime"
	logpkg "github.com/rzbill/catalog/pkg/log"
)

type commitOutput struct {
	CommitID        string `json:"commitId"`
	CommitTimestamp string `json:"commitTimeStamp"`
	Items           int    `json:"items"`
	Pages           int    `json:"pages"`
	Root            string `json:"root"`
}

// NewAppendCommand constructs the `append` command. It opens the local data
// directory directly, so a pebble-backed server must not be running on it.
func NewAppendCommand() *cobra.Command {
	var (
		dataDir  string
		storage  string
		itemType string
		ids      []string
		at       string
		metaJSON string
	)
	cmd := &cobra.Command{
		Use:   "append FILE...",
		Short: "Append JSON documents to the catalog as one commit",
		Long: "Each FILE (or - for stdin) must hold a JSON object. The documents are " +
			"committed together under one commit id and timestamp.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if itemType == "" {
				return fmt.Errorf("--type is required")
			}
			if len(ids) > 0 && len(ids) != len(args) {
				return fmt.Errorf("--id given %d times for %d documents", len(ids), len(args))
			}
			var ts time.Time
			if at != "" {
				t, err := catalog.ParseTimestamp(at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				ts = t
			}
			var extra catalog.Extra
			if metaJSON != "" {
				if err := json.Unmarshal([]byte(metaJSON), &extra); err != nil {
					return fmt.Errorf("invalid --meta-json: %w", err)
				}
			}

			items := make([]catalog.Item, 0, len(args))
			for i, name := range args {
				body, err := readDocument(cmd.InOrStdin(), name)
				if err != nil {
					return err
				}
				identity := identityFor(name)
				if len(ids) > 0 {
					identity = ids[i]
				}
				items = append(items, catalog.NewDocumentItem(itemType, identity, body))
			}

			cfg := cfgpkg.Default()
			cfgpkg.FromEnv(&cfg)
			if storage != "" {
				cfg.Storage = storage
			}
			rt, err := runtime.Open(cmd.Context(), runtime.Options{
				DataDir: dataDir,
				Config:  cfg,
				Logger:  logpkg.NewNopLogger(),
			})
			if err != nil {
				return err
			}
			defer rt.Close()

			w := rt.NewWriter()
			defer w.Close()
			for _, it := range items {
				if err := w.Add(it); err != nil {
					return err
				}
			}
			var c catalog.Commit
			if ts.IsZero() {
				c, err = w.Commit(cmd.Context(), extra)
			} else {
				c, err = w.CommitAt(cmd.Context(), ts, extra)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), commitOutput{
				CommitID:        c.ID,
				CommitTimestamp: catalog.FormatTimestamp(c.Timestamp),
				Items:           c.Items,
				Pages:           c.Pages,
				Root:            w.RootURI(),
			})
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Data directory (defaults to CATALOG_DATA_DIR or the OS application data directory)")
	cmd.Flags().StringVar(&storage, "storage", "", "Storage backend: pebble|file|postgres|memory")
	cmd.Flags().StringVar(&itemType, "type", "", "Item type recorded on every appended document")
	cmd.Flags().StringArrayVar(&ids, "id", nil, "Item identity per document, in argument order (default: file name without extension)")
	cmd.Flags().StringVar(&at, "at", "", "Commit timestamp (RFC3339); defaults to now")
	cmd.Flags().StringVar(&metaJSON, "meta-json", "", "JSON object merged into the root index as commit metadata")
	return cmd
}

func readDocument(stdin io.Reader, name string) (json.RawMessage, error) {
	var (
		b   []byte
		err error
	)
	if name == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("%s: not valid JSON", name)
	}
	return json.RawMessage(b), nil
}

func identityFor(name string) string {
	if name == "-" {
		return ""
	}
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
