// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/jobstream/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for a user",
	Long: `Token signs a JWT with server.jwt_secret (or .secrets/jwt-secret) whose
subject is --user. Pass it as "Authorization: Bearer <token>" or as the
token query parameter to attribute searches to that user.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if user == "" {
			return fmt.Errorf("--user is required")
		}
		tok, err := auth.SignToken([]byte(cfg.Server.JWTSecret), user, ttl)
		if err != nil {
			return fmt.Errorf("signing token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().String("user", "", "user id to put in the token subject")
	tokenCmd.Flags().Duration("ttl", auth.DefaultTokenTTL, "token lifetime")

	rootCmd.AddCommand(tokenCmd)
}
