package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"crc-quiz-server/results"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild-results",
	Short: "Rewrite summary logs from the stored run files",
	Long: `Rewrite each user's results.csv from the run files under the results directory.

Run files that fail to parse or validate are skipped.`,
	RunE: runRebuild,
}

func init() {
	rebuildCmd.Flags().String("user", "", "Rebuild a single user")
	rebuildCmd.Flags().Bool("all", false, "Rebuild every user with a results directory")
	rebuildCmd.Flags().String("dir", "", "Results directory (overrides DATA.RESULTS_DIR)")
	rebuildCmd.MarkFlagsMutuallyExclusive("user", "all")
	rebuildCmd.MarkFlagsOneRequired("user", "all")
}

func runRebuild(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dir = cfg.Data.ResultsDir
	}
	store := results.NewStore(dir)

	user, _ := cmd.Flags().GetString("user")
	users := []string{user}
	if all, _ := cmd.Flags().GetBool("all"); all {
		var err error
		if users, err = store.Users(); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	var failed int
	for _, u := range users {
		n, err := store.RewriteSummary(u)
		if err != nil {
			fmt.Fprintf(out, "%s: failed: %v\n", u, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "%s: %d runs\n", u, n)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d users failed to rebuild", failed, len(users))
	}
	return nil
}
