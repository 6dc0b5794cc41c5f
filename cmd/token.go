package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/interview-coach/internal/identity"
	"github.com/spigell/interview-coach/internal/secrets"
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint a development identity token signed with the gateway secret",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ttl, err := cmd.Flags().GetDuration("ttl")
		if err != nil {
			ttl = 24 * time.Hour
		}
		mintToken(args[0], ttl)
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
}

func mintToken(userID string, ttl time.Duration) {
	logger, config := setup()

	gw := config.Gateway
	if gw == nil {
		gw = &GatewayConfig{}
	}

	secret, err := secrets.Load(secrets.Source{
		Name:  "jwt secret",
		File:  gw.JWTSecretFile,
		Value: gw.JWTSecret,
	})
	if err != nil {
		logger.Fatal("loading jwt secret", zap.Error(err))
	}

	issuer, err := identity.NewIssuer(secret)
	if err != nil {
		logger.Fatal("creating a token issuer", zap.Error(err))
	}

	token, err := issuer.Issue(userID, ttl)
	if err != nil {
		logger.Fatal("issuing a token", zap.Error(err))
	}
	fmt.Println(token)
}
