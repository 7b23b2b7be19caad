package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fileflow/internal/auth"
	"fileflow/internal/config"
	"fileflow/internal/service"
)

const (
	TransactionIDKey = "transaction-id"
	CreatedAtKey     = "created-at"
	SenderKey        = "sender"
	RecipientKey     = "recipient"
	ChecksumKey      = "checksum"
	SignatureKey     = "signature"
	AccountIDKey     = "account-id"
	SecretKey        = "secret"
	TTLKey           = "ttl"
)

var errSignatureMismatch = errors.New("signature does not match")

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "receipt",
		Short:        "Offline tools for FileFlow receipts",
		SilenceUsage: true,
	}
	root.AddCommand(signCommand(), verifyCommand(), tokenCommand())
	return root
}

func addFieldFlags(c *cobra.Command) {
	flags := c.Flags()
	flags.String(TransactionIDKey, "", "Transaction id of the share (required)")
	flags.String(CreatedAtKey, "", "Share creation time, RFC 3339 (required)")
	flags.String(SenderKey, "", "Sender account id (required)")
	flags.String(RecipientKey, "", "Recipient account id; empty for an unregistered recipient")
	flags.String(ChecksumKey, "", "SHA-256 checksum of the shared content (required)")
	for _, k := range []string{TransactionIDKey, CreatedAtKey, SenderKey, ChecksumKey} {
		_ = c.MarkFlagRequired(k)
	}
}

func parseFields(c *cobra.Command) (service.SignatureFields, error) {
	flags := c.Flags()
	var f service.SignatureFields
	var err error
	if f.TransactionID, err = flags.GetString(TransactionIDKey); err != nil {
		return f, err
	}
	createdAt, err := flags.GetString(CreatedAtKey)
	if err != nil {
		return f, err
	}
	if f.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return f, fmt.Errorf("invalid --%s: %w", CreatedAtKey, err)
	}
	if f.SenderID, err = flags.GetString(SenderKey); err != nil {
		return f, err
	}
	if f.RecipientID, err = flags.GetString(RecipientKey); err != nil {
		return f, err
	}
	if f.Checksum, err = flags.GetString(ChecksumKey); err != nil {
		return f, err
	}
	return f, nil
}

func signCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "sign",
		Short: "Print the verification signature for a share",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			f, err := parseFields(c)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), service.SignFields(f))
			return nil
		},
	}
	addFieldFlags(c)
	return c
}

func verifyCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "verify",
		Short: "Check a receipt's verification signature",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			f, err := parseFields(c)
			if err != nil {
				return err
			}
			sig, err := c.Flags().GetString(SignatureKey)
			if err != nil {
				return err
			}
			if !service.Verify(f, sig) {
				return errSignatureMismatch
			}
			fmt.Fprintln(c.OutOrStdout(), "OK")
			return nil
		},
	}
	addFieldFlags(c)
	c.Flags().String(SignatureKey, "", "Signature printed on the receipt (required)")
	_ = c.MarkFlagRequired(SignatureKey)
	return c
}

func tokenCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an account (development only)",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			flags := c.Flags()
			accountID, err := flags.GetString(AccountIDKey)
			if err != nil {
				return err
			}
			secret, err := flags.GetString(SecretKey)
			if err != nil {
				return err
			}
			if secret == "" {
				secret = config.Load().Auth.JWTSecret
			}
			if secret == "" {
				return fmt.Errorf("--%s or JWT_SECRET is required", SecretKey)
			}
			ttl, err := flags.GetDuration(TTLKey)
			if err != nil {
				return err
			}
			token, err := auth.GenerateToken(accountID, []byte(secret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.OutOrStdout(), token)
			return nil
		},
	}
	flags := c.Flags()
	flags.String(AccountIDKey, "", "Account id to put in the subject claim (required)")
	flags.String(SecretKey, "", "HMAC secret; defaults to JWT_SECRET")
	flags.Duration(TTLKey, time.Hour, "Token lifetime")
	_ = c.MarkFlagRequired(AccountIDKey)
	return c
}
