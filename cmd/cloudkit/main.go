package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"cloudkit/internal/app"
	cerrors "cloudkit/internal/errors"
	"cloudkit/internal/ui"
)

// version is set at build time via ldflags
var version = "dev"

var console = ui.NewConsole()

var rootCmd = &cobra.Command{
	Use:     "cloudkit",
	Short:   "CloudKit - Container image and container control across local and cloud registries",
	Version: version,
	Long: `CloudKit drives container images and containers through one interface, whether
they live on the local engine, a hosted registry reached with a username and
password, or a cloud registry reachable only through its command-line tool.

The provider comes from a profile file (--file) or from --provider and its
credential flags.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Tag a source image with every target listed in a profile",
	Long: `Promote logs in to the profile's provider, pulls the source image, tags it with
every target and verifies the tags exist. A failed run leaves a state file and
the next run resumes after the last completed stage.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		retainState, _ := cmd.Flags().GetBool("retain-state")

		return app.NewPromoter(app.NewProviderFactory(), console).Run(cmd.Context(), file, dryRun, retainState)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("file", "f", "", "Path to a profile YAML file")
	flags.String("provider", "", "Provider kind: local, hosted-registry or cli-registry (overrides the profile)")
	flags.String("username", "", "Registry username for hosted-registry")
	flags.String("key-id", "", "Service-account key ID for cli-registry")
	flags.String("credential-dir", "", "Directory holding service-account key files (default ~/.ssh)")

	promoteCmd.Flags().Bool("dry-run", false, "Print the planned actions without pulling, tagging or pushing")
	promoteCmd.Flags().Bool("retain-state", false, "Keep the state file after successful completion for auditing purposes")
	promoteCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if file, _ := cmd.Flags().GetString("file"); file == "" {
			return cerrors.NewConfigError("Cannot promote without a profile",
				"the --file flag is required", "Pass the profile with -f cloudkit.yaml", errNoProfile)
		}
		return nil
	}
	rootCmd.AddCommand(promoteCmd)

	addImageCommands(rootCmd)
	addContainerCommands(rootCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cerrors.HandleError(err)
		stop()
		os.Exit(1)
	}
}
