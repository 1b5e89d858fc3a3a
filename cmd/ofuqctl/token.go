package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ofuq-backend/internal/config"
	"ofuq-backend/internal/middleware"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a signed JWT for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := config.Require("JWT_SECRET")
		if err != nil {
			return err
		}
		user, _ := cmd.Flags().GetString("user")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		token, err := middleware.NewJWTAuth(secret).GenerateToken(user, role, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("user", "", "Subject user ID")
	tokenCmd.Flags().String("role", "", "Role claim, e.g. admin")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	tokenCmd.MarkFlagRequired("user")
}
