package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/DeBrosOfficial/walletkit/pkg/chains"
	"github.com/DeBrosOfficial/walletkit/pkg/connectors"
	"github.com/DeBrosOfficial/walletkit/pkg/hooks"
)

func newSignCmd(opts *Options) *cobra.Command {
	var keystorePath string
	cmd := &cobra.Command{
		Use:   "sign <message>",
		Short: "Sign a message (EIP-191) with a keystore account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase, err := readPassphrase(cmd)
			if err != nil {
				return err
			}
			var conn connectors.Connector
			rt, err := opts.open(cmd.Context(), func(configured *chains.Configured) ([]connectors.Connector, error) {
				ks, err := connectors.LoadKeystoreFile(keystorePath, passphrase, connectors.LocalOptions{
					Chains:  configured.Chains,
					Clients: configured,
				})
				if err != nil {
					return nil, err
				}
				conn = ks
				return []connectors.Connector{ks}, nil
			})
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := opts.withTimeout(rt.ctx)
			defer cancel()

			connect, err := hooks.NewConnect(ctx)
			if err != nil {
				return err
			}
			defer connect.Close()
			res, err := connect.Mutate(ctx, hooks.ConnectArgs{Connector: conn, ChainID: rt.chainID})
			if err != nil {
				return fmt.Errorf("failed to connect keystore: %w", err)
			}

			sign, err := hooks.NewSignMessage(ctx)
			if err != nil {
				return err
			}
			defer sign.Close()
			sig, err := sign.Mutate(ctx, []byte(args[0]))
			if err != nil {
				return fmt.Errorf("failed to sign: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return printJSON(out, map[string]any{"address": res.Account.Hex(), "signature": sig.String()})
			}
			fmt.Fprintf(out, "address:   %s\n", res.Account.Hex())
			fmt.Fprintf(out, "signature: %s\n", sig.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&keystorePath, "keystore", "", "Path to a V3 keystore file")
	_ = cmd.MarkFlagRequired("keystore")
	return cmd
}

// readPassphrase prompts without echo on a terminal and otherwise reads one
// line from the command's input.
func readPassphrase(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Passphrase: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
