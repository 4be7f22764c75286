package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/DeBrosOfficial/walletkit/pkg/actions"
)

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newBalanceCmd(opts *Options) *cobra.Command {
	var token, unit string
	cmd := &cobra.Command{
		Use:   "balance <address>",
		Short: "Show the native or ERC-20 balance of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			params := actions.BalanceParams{Address: addr, FormatUnits: unit}
			if token != "" {
				t, err := parseAddress(token)
				if err != nil {
					return err
				}
				params.Token = &t
			}

			rt, err := opts.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()
			params.ChainID = rt.chainID

			ctx, cancel := opts.withTimeout(rt.ctx)
			defer cancel()
			bal, err := actions.FetchBalance(ctx, rt.client, params)
			if err != nil {
				return fmt.Errorf("failed to fetch balance: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return printJSON(out, bal)
			}
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ADDRESS\tCHAIN\tBALANCE\tSYMBOL")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", addr.Hex(), rt.chain().Name, bal.Formatted, bal.Symbol)
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "ERC-20 token address")
	cmd.Flags().StringVar(&unit, "unit", "", "Display unit: wei, gwei, ether or a decimals count")
	return cmd
}

func newBlockCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "block",
		Short: "Show the latest block number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := opts.withTimeout(rt.ctx)
			defer cancel()
			n, err := actions.FetchBlockNumber(ctx, rt.client, rt.chainID)
			if err != nil {
				return fmt.Errorf("failed to fetch block number: %w", err)
			}

			if opts.Format == "json" {
				return printJSON(cmd.OutOrStdout(), map[string]any{"chainId": rt.chainID, "blockNumber": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s block %d\n", rt.chain().Name, n)
			return nil
		},
	}
}

func newTokenCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "token <address>",
		Short: "Show ERC-20 token metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			rt, err := opts.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := opts.withTimeout(rt.ctx)
			defer cancel()
			tok, err := actions.FetchToken(ctx, rt.client, actions.TokenParams{Address: addr, ChainID: rt.chainID})
			if err != nil {
				return fmt.Errorf("failed to fetch token: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return printJSON(out, tok)
			}
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintf(w, "Address:\t%s\n", tok.Address.Hex())
			fmt.Fprintf(w, "Name:\t%s\n", tok.Name)
			fmt.Fprintf(w, "Symbol:\t%s\n", tok.Symbol)
			fmt.Fprintf(w, "Decimals:\t%d\n", tok.Decimals)
			fmt.Fprintf(w, "Total supply:\t%s\n", tok.TotalSupply.Formatted)
			return w.Flush()
		},
	}
}

func newChainsCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "chains",
		Short: "List the configured chains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			list := rt.client.Chains()
			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return printJSON(out, list)
			}
			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCURRENCY\tTESTNET")
			for _, ch := range list {
				fmt.Fprintf(w, "%d\t%s\t%s\t%v\n", ch.ID, ch.Name, ch.NativeCurrency.Symbol, ch.Testnet)
			}
			return w.Flush()
		},
	}
}
