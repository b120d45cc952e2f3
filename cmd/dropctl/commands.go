package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"shirtdrop/internal/domain/service/auction"
	"shirtdrop/internal/domain/service/drop"
	"shirtdrop/migrations"
	"shirtdrop/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

func newRootCmd(d *deps) *cobra.Command {

	root := &cobra.Command{
		Use:           "dropctl",
		Short:         "Operator tasks for shirt drops",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCmd(d),
		newBackfillCmd(d),
		newIssueTokensCmd(d),
		newCloseAuctionCmd(d),
		newSponsorCmd(d),
	)

	return root
}

func newMigrateCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := d.database(cmd.Context())
			if err != nil {
				return err
			}

			applied, err := migrations.Apply(cmd.Context(), db)
			if err != nil {
				return fmt.Errorf("migrations.Apply: %w", err)
			}

			logger(cmd.Context()).Info("schema applied", slog.Any("files", applied))

			return nil
		},
	}
}

func newBackfillCmd(d *deps) *cobra.Command {
	var dropID string

	cmd := &cobra.Command{
		Use:   "backfill --drop ID DIGEST...",
		Short: "Record shirts minted by transactions the service never stored",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(dropID)
			if err != nil {
				return fmt.Errorf("--drop: %w", err)
			}

			svc, err := d.dropService(cmd.Context())
			if err != nil {
				return err
			}

			results, err := svc.Backfill(cmd.Context(), drop.BackfillInput{DropID: id, Digests: args})
			if err != nil {
				return fmt.Errorf("Backfill: %w", err)
			}

			return printJSON(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVar(&dropID, "drop", "", "drop id")
	_ = cmd.MarkFlagRequired("drop")

	return cmd
}

func newIssueTokensCmd(d *deps) *cobra.Command {
	var dropID string

	cmd := &cobra.Command{
		Use:   "issue-tokens --drop ID [SHIRT_ID...]",
		Short: "Issue claim tokens, for every shirt without one when no ids are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(dropID)
			if err != nil {
				return fmt.Errorf("--drop: %w", err)
			}

			shirtIDs := make([]uuid.UUID, 0, len(args))

			for _, arg := range args {
				shirtID, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("shirt id %q: %w", arg, err)
				}

				shirtIDs = append(shirtIDs, shirtID)
			}

			svc, err := d.dropService(cmd.Context())
			if err != nil {
				return err
			}

			issued, err := svc.IssueClaimTokens(cmd.Context(), id, shirtIDs)
			if err != nil {
				return fmt.Errorf("IssueClaimTokens: %w", err)
			}

			return printJSON(cmd.OutOrStdout(), issued)
		},
	}

	cmd.Flags().StringVar(&dropID, "drop", "", "drop id")
	_ = cmd.MarkFlagRequired("drop")

	return cmd
}

func newCloseAuctionCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "close-auction DROP_ID",
		Short: "Close a drop's auction and rank the bids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("drop id: %w", err)
			}

			svc, err := d.auctionService(cmd.Context())
			if err != nil {
				return err
			}

			result, err := svc.Close(cmd.Context(), id, auction.TriggerAdmin)
			if err != nil {
				return fmt.Errorf("Close: %w", err)
			}

			return printJSON(cmd.OutOrStdout(), result)
		},
	}
}

func newSponsorCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "sponsor",
		Short: "Print the sponsor address derived from SPONSOR_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			contract, err := d.contract()
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), contract.Sponsor().String())

			return err
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	return nil
}
