package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "foldermerge",
	Short: "Resumable, crash-consistent merge of two source trees into one destination",
	Long: `foldermerge walks two source directory trees, classifies every path as
unique-to-one-side, identical, or conflicting, and reproduces the merged
result under a destination directory. Progress is tracked in a SQLite
database so an interrupted run resumes exactly where it left off.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to the run's SQLite database (overrides FOLDERMERGE_DB_PATH)")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return exitCodeError{code: exitUsageError, err: err}
	})
}
