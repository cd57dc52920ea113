package commands

import (
	"fmt"
	"runtime"

	"github.com/MEKXH/gitmind/internal/mcp"
	"github.com/MEKXH/gitmind/internal/version"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of gitmind",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gitmind %s (%s, protocol %s) %s/%s\n",
				version.Version, mcp.ServerName, mcp.ProtocolVersion, runtime.GOOS, runtime.GOARCH)
		},
	}
}
