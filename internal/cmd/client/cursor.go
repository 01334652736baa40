package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rzbill/catalog/internal/cursor"
)

// NewCursorCommand constructs the `cursor` command group.
func NewCursorCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{Use: "cursor", Short: "Read and advance named cursors on a catalog server"}
	cmd.AddCommand(
		newCursorGetCommand(baseURL),
		newCursorSetCommand(baseURL),
		newCursorListCommand(baseURL),
	)
	return cmd
}

func newCursorGetCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Print a cursor's watermark document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := (&cursor.HTTPReader{URL: cursorURL(baseURL, args[0])}).Load(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cursor.Document{Value: &c})
		},
	}
}

func newCursorSetCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "set NAME TIMESTAMP",
		Short: "Advance a cursor; lower values are ignored by the server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cursor.Parse(args[1])
			if err != nil {
				return err
			}
			url := cursorURL(baseURL, args[0])
			if err := (&cursor.HTTPWriter{URL: url}).Save(cmd.Context(), c); err != nil {
				return err
			}
			stored, err := (&cursor.HTTPReader{URL: url}).Load(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cursor.Document{Value: &stored})
		},
	}
}

func newCursorListCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every cursor stored on the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimSuffix(baseURL(), "/")+"/v1/cursors", nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				_, _ = io.Copy(io.Discard, resp.Body)
				return fmt.Errorf("list cursors: %s", resp.Status)
			}
			var all map[string]cursor.Cursor
			if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), all)
		},
	}
}
