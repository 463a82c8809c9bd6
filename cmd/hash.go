package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"crc-quiz-server/auth"
)

var hashCmd = &cobra.Command{
	Use:   "hash-code <code>",
	Short: "Print the code_hash value for a login code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		useBcrypt, _ := cmd.Flags().GetBool("bcrypt")
		if !useBcrypt {
			fmt.Fprintln(cmd.OutOrStdout(), auth.HashCode(args[0]))
			return nil
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(hash))
		return nil
	},
}

func init() {
	hashCmd.Flags().Bool("bcrypt", false, "Emit a bcrypt hash instead of sha256")
}
