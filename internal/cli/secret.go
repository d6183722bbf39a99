package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/career-planner/internal/credential"
)

func newSecretCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the webhook signing secret in the system keyring",
	}

	set := &cobra.Command{
		Use:   "set [value]",
		Short: "Store the webhook secret (reads stdin when no value is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 1 {
				value = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading secret from stdin: %w", err)
				}
				value = line
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return errors.New("secret must not be empty")
			}

			if err := credential.Set(credential.WebhookSecretKey, value); err != nil {
				return err
			}
			a.logger.Info("credential.webhook_secret.stored")
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return credential.Delete(credential.WebhookSecretKey)
		},
	}

	cmd.AddCommand(set, del)
	return cmd
}
