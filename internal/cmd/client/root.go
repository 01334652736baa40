package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the catalog client.
// It registers the append, collect, cursor and health commands.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog client commands",
	}
	root.AddCommand(NewAppendCommand())
	root.AddCommand(NewCollectCommand(baseURL))
	root.AddCommand(NewCursorCommand(baseURL))
	root.AddCommand(NewHealthCommand())
	return root
}
