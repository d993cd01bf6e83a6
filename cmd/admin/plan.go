package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/kevin07696/clientledger/internal/domain"
	serviceports "github.com/kevin07696/clientledger/internal/services/ports"
	"github.com/kevin07696/clientledger/internal/services/subscription"
)

func planCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect plans and resolve plan changes",
	}
	cmd.AddCommand(planListCmd(a))
	cmd.AddCommand(planResolveCmd(a))
	cmd.AddCommand(planClassifyCmd(a))
	return cmd
}

func planListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the plan catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServices(cmd.Context(), func(svc *services) error {
				plans, err := svc.plans.ListPlans(cmd.Context())
				if err != nil {
					return err
				}
				return a.printJSON(plans)
			})
		},
	}
}

func planResolveCmd(a *app) *cobra.Command {
	var interval string

	cmd := &cobra.Command{
		Use:   "resolve ACCOUNT_ID TARGET_PLAN_ID",
		Short: "Resolve the billing action for moving an account to a plan",
		Long: `Loads the account's subscription state and the target plan and prints
the decision: REQUIRES_CHECKOUT, IN_PLACE_UPGRADE or IN_PLACE_DOWNGRADE.
The billing provider is not called.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &serviceports.PlanChangeRequest{
				AccountID:    args[0],
				TargetPlanID: args[1],
				Interval:     domain.BillingInterval(strings.ToUpper(interval)),
			}
			return a.withServices(cmd.Context(), func(svc *services) error {
				decision, err := svc.plans.ResolvePlanChange(cmd.Context(), req)
				if err != nil {
					return err
				}
				return a.printJSON(decision)
			})
		},
	}

	cmd.Flags().StringVarP(&interval, "interval", "i", "", "billing interval (MONTHLY or YEARLY); defaults to the account's")
	return cmd
}

// planClassifyCmd runs the price-only classification without a database
func planClassifyCmd(a *app) *cobra.Command {
	var (
		status          string
		currentPrice    string
		targetPrice     string
		externalBilling bool
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a plan change from prices alone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := decimal.NewFromString(currentPrice)
			if err != nil {
				return fmt.Errorf("invalid --current-price %q: %w", currentPrice, err)
			}
			target, err := decimal.NewFromString(targetPrice)
			if err != nil {
				return fmt.Errorf("invalid --target-price %q: %w", targetPrice, err)
			}
			st := domain.SubscriptionStatus(strings.ToUpper(status))
			if !st.IsValid() {
				return fmt.Errorf("invalid --status %q", status)
			}

			action, err := subscription.ResolveAction(&domain.SubscriptionState{
				Status:                         st,
				CurrentPlanPrice:               current,
				HasExternalBillingSubscription: externalBilling,
			}, target)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, action)
			return err
		},
	}

	cmd.Flags().StringVar(&status, "status", string(domain.SubscriptionStatusActive), "current subscription status")
	cmd.Flags().StringVar(&currentPrice, "current-price", "", "price of the current plan")
	cmd.Flags().StringVar(&targetPrice, "target-price", "", "price of the target plan")
	cmd.Flags().BoolVar(&externalBilling, "external-billing", true, "account has a subscription at the billing provider")
	_ = cmd.MarkFlagRequired("current-price")
	_ = cmd.MarkFlagRequired("target-price")
	return cmd
}
