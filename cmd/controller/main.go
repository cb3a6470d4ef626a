// Command controller serves layout decisions over gRPC and HTTP and offers
// one-shot decide/feedback calls against a local store or a remote server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	remote     string
}

var rootCmd = &cobra.Command{
	Use:   "controller",
	Short: "Adaptive layout decision engine",
	Long: "controller picks a layout variation per request with a contextual bandit\n" +
		"blended with a small Q-network, and learns from user feedback.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.configPath, "config", "c", os.Getenv("LAYOUT_CONFIG"), "YAML or JSON config file")
	pf.StringVar(&rootFlags.remote, "remote", "", "gRPC address of a running server; decide/feedback/stats go there instead of the local store")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
