package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kevin07696/clientledger/internal/domain"
	serviceports "github.com/kevin07696/clientledger/internal/services/ports"
)

func paymentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Inspect and move payments",
	}
	cmd.AddCommand(paymentsOverdueCmd(a))
	cmd.AddCommand(paymentsTransitionCmd(a))
	return cmd
}

func paymentsOverdueCmd(a *app) *cobra.Command {
	var (
		firmID string
		remind bool
		limit  int32
	)

	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List overdue payments of a firm, or send reminders",
		Long: `Without --remind, lists the payments of --firm that are overdue right now.
With --remind, runs the overdue sweep (for every firm when --firm is empty)
and publishes a reminder event per overdue payment. Stored statuses are
never changed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !remind && firmID == "" {
				return fmt.Errorf("--firm is required unless --remind is set")
			}
			return a.withServices(cmd.Context(), func(svc *services) error {
				if remind {
					result, err := svc.sweeper.Sweep(cmd.Context(), firmID)
					if err != nil {
						return err
					}
					return a.printJSON(result)
				}

				views, err := svc.payments.ListPayments(cmd.Context(), &serviceports.ListPaymentsRequest{
					FirmID:      firmID,
					OverdueOnly: true,
					Limit:       limit,
				})
				if err != nil {
					return err
				}
				return a.printJSON(views)
			})
		},
	}

	cmd.Flags().StringVar(&firmID, "firm", "", "firm ID")
	cmd.Flags().BoolVar(&remind, "remind", false, "publish overdue reminder events")
	cmd.Flags().Int32Var(&limit, "limit", 100, "maximum payments to list")
	return cmd
}

func paymentsTransitionCmd(a *app) *cobra.Command {
	var (
		evidenceKind    string
		documentID      string
		actorID         string
		expectedVersion int64
	)

	cmd := &cobra.Command{
		Use:   "transition PAYMENT_ID TARGET_STATUS",
		Short: "Move a payment to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildTransitionRequest(args[0], args[1], evidenceKind, documentID, actorID)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("expected-version") {
				req.ExpectedVersion = &expectedVersion
			}

			return a.withServices(cmd.Context(), func(svc *services) error {
				resp, err := svc.payments.Transition(cmd.Context(), req)
				if err != nil {
					return err
				}
				return a.printJSON(resp)
			})
		},
	}

	cmd.Flags().StringVar(&evidenceKind, "evidence", "", "evidence kind: DOCUMENT_ATTACHED, PROOF_OF_PAYMENT or APPROVAL")
	cmd.Flags().StringVar(&documentID, "document", "", "document ID backing the evidence")
	cmd.Flags().StringVar(&actorID, "actor", "admin-cli", "who is making the change")
	cmd.Flags().Int64Var(&expectedVersion, "expected-version", 0, "fail if the payment's version differs")
	return cmd
}

func buildTransitionRequest(paymentID, target, evidenceKind, documentID, actorID string) (*serviceports.TransitionRequest, error) {
	status := domain.PaymentStatus(strings.ToUpper(target))
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown status %q", target)
	}
	kind := domain.EvidenceKind(strings.ToUpper(evidenceKind))
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown evidence kind %q", evidenceKind)
	}

	return &serviceports.TransitionRequest{
		PaymentID:    paymentID,
		TargetStatus: status,
		Evidence: domain.Evidence{
			Kind:       kind,
			DocumentID: documentID,
			ActorID:    actorID,
		},
	}, nil
}
