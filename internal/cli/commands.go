package cli

import (
	"fmt"
	"strconv"

	"YieldOptimizer/internal/fund"
	"YieldOptimizer/internal/model"
	"YieldOptimizer/internal/recorder"

	"github.com/spf13/cobra"
)

func newInitCmd(o *rootOptions) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   "init <owner>",
		Short: "Create an owner's ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			owner := args[0]
			ledger, err := app.Fund.Initialize(cmd.Context(), callerOr(as, owner), owner)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ledger)
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "caller identity (defaults to the owner)")
	return cmd
}

func newOptimizeCmd(o *rootOptions) *cobra.Command {
	var (
		as       string
		from, to string
		mint     string
		amount   uint64
	)
	cmd := &cobra.Command{
		Use:   "optimize <owner>",
		Short: "Move funds to a higher yielding protocol",
		Example: `  optimizer optimize alice --from raydium --to solend --mint USDC --amount 1000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			owner := args[0]
			res, err := app.Fund.OptimizeYield(cmd.Context(), fund.Request{
				Caller:          callerOr(as, owner),
				Owner:           owner,
				CurrentProtocol: model.ParseProtocol(from),
				NewProtocol:     model.ParseProtocol(to),
				AssetMint:       mint,
				Amount:          amount,
			})
			if model.IsBusinessOutcome(err) {
				fmt.Fprintf(cmd.OutOrStdout(), "no reallocation: %v\n", err)
				return nil
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "caller identity (defaults to the owner)")
	cmd.Flags().StringVar(&from, "from", "", "current protocol")
	cmd.Flags().StringVar(&to, "to", "", "new protocol")
	cmd.Flags().StringVar(&mint, "mint", "", "asset mint")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "gross amount to move")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("mint")
	return cmd
}

func newFeeCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fee",
		Short: "Show or change the platform fee rate",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the governance record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			rec, err := app.Governance.Get(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}

	var as string
	set := &cobra.Command{
		Use:   "set <bps>",
		Short: "Set the fee rate in basis points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid fee rate %q: %w", args[0], err)
			}
			app, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			rec, err := app.Governance.UpdateFeeRate(cmd.Context(), callerOr(as, app.Config.Governance.Authority), rate)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
	set.Flags().StringVar(&as, "as", "", "caller identity (defaults to governance.authority)")

	cmd.AddCommand(get, set)
	return cmd
}

func newLedgerCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ledger <owner>",
		Short: "Print an owner's ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			ledger, err := app.Fund.Ledger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			busy, err := app.Fund.InProgress(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				*model.FundLedger
				InProgress bool `json:"in_progress"`
			}{ledger, busy})
		},
	}
}

func newBalanceCmd(o *rootOptions, direction string) *cobra.Command {
	var as string
	cmd := &cobra.Command{
		Use:   direction + " <owner> <asset> <amount>",
		Short: fmt.Sprintf("Record a custody %s", direction),
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil || amount == 0 {
				return fmt.Errorf("invalid amount %q", args[2])
			}
			app, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			owner := args[0]
			op := app.Fund.CreditBalance
			if direction == model.DirectionDebit {
				op = app.Fund.DebitBalance
			}
			ledger, err := op(cmd.Context(), callerOr(as, owner), owner, args[1], amount)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ledger)
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "caller identity (defaults to the owner)")
	return cmd
}

func newEventsCmd(o *rootOptions) *cobra.Command {
	var (
		owner string
		typ   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recorded audit events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			entries, err := app.Recorder.ListEvents(cmd.Context(), recorder.Filter{
				Owner: owner,
				Type:  model.EventType(typ),
				Limit: limit,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-20s %-12s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Type, e.Owner, e.Payload)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only events for this owner")
	cmd.Flags().StringVar(&typ, "type", "", "only events of this type")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events")
	return cmd
}

func newTokenCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint a bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load()
			if err != nil {
				return err
			}
			app := &App{Config: cfg}
			tokens, err := app.Tokens()
			if err != nil {
				return err
			}
			tok, err := tokens.Issue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "optimizer version %s\n", Version)
		},
	}
}

func callerOr(as, fallback string) string {
	if as != "" {
		return as
	}
	return fallback
}
