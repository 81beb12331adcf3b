package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
	"github.com/spf13/cobra"

	"github.com/teemow/contactstats/internal/config"
	"github.com/teemow/contactstats/internal/credential"
	"github.com/teemow/contactstats/internal/google"
	"github.com/teemow/contactstats/internal/provider"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage mailbox credentials",
	}
	cmd.AddCommand(newAuthGoogleCmd(), newAuthIMAPCmd())
	return cmd
}

func newAuthGoogleCmd() *cobra.Command {
	var (
		account         string
		credentialsFile string
		remove          bool
		force           bool
	)

	cmd := &cobra.Command{
		Use:   "google",
		Short: "Authorize read-only Gmail access for an account",
		Long: `Run the OAuth consent flow in the browser and store the resulting token
under the given account name. The OAuth client is read from --credentials-file
or from GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := google.ValidateAccountName(account); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if remove {
				if !google.HasTokenForAccount(account) {
					fmt.Fprintf(out, "No token stored for account %s\n", account)
					return nil
				}
				if err := google.DeleteToken(account); err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed token for account %s\n", account)
				return nil
			}

			if !force && google.HasTokenForAccount(account) {
				fmt.Fprintf(out, "Account %s is already authorized. Use --force to authorize it again.\n", account)
				return nil
			}

			if credentialsFile == "" {
				if cfg, err := config.Load(configPath, nil); err == nil {
					credentialsFile = cfg.Google.CredentialsFile
				}
			}
			conf, err := google.OAuthConfig(credentialsFile)
			if err != nil {
				return err
			}

			flow := &google.Flow{Config: conf, Out: out, In: os.Stdin}
			tok, err := flow.Authorize(cmd.Context())
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}
			if err := google.SaveToken(account, tok); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved token for account %s\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", config.DefaultAccount, "Account name for the token")
	cmd.Flags().StringVar(&credentialsFile, "credentials-file", "", "OAuth client JSON downloaded from the Google Cloud console")
	cmd.Flags().BoolVar(&remove, "delete", false, "Remove the stored token instead")
	cmd.Flags().BoolVar(&force, "force", false, "Authorize again even if a token is stored")

	return cmd
}

func newAuthIMAPCmd() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "imap",
		Short: "Store the IMAP password in the system keyring",
		Long: `Prompt for the password of the IMAP account configured under "imap" and
store it in the system keyring. The password is looked up by username and host.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, nil)
			if err != nil {
				return err
			}
			ic := provider.IMAPConfig(cfg)
			if err := ic.Validate(); err != nil {
				return err
			}

			store, err := credential.Open()
			if err != nil {
				return err
			}
			key := credential.IMAPPasswordKey(ic.Username, ic.Host)
			out := cmd.OutOrStdout()

			if remove {
				if err := store.Delete(key); err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed password for %s@%s\n", ic.Username, ic.Host)
				return nil
			}

			pw, err := keyring.TerminalPrompt(fmt.Sprintf("Password for %s@%s", ic.Username, ic.Host))
			if err != nil {
				return err
			}
			if pw == "" {
				return errors.New("empty password")
			}
			if err := store.Set(key, pw); err != nil {
				return err
			}
			fmt.Fprintf(out, "Stored password for %s@%s\n", ic.Username, ic.Host)
			return nil
		},
	}

	cmd.Flags().BoolVar(&remove, "delete", false, "Remove the stored password instead")

	return cmd
}
