package main

import (
	"bufio"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/app"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/auth"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/deploy"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/pricing"
)

type deployFlags struct {
	pricingFile   string
	confirmDelete []string
}

func (f *deployFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.pricingFile, "pricing", "p", "", "Pricing YAML file (required)")
	cmd.Flags().StringArrayVar(&f.confirmDelete, "confirm-delete", nil, "Allow permanent deletion of a vessel marked remove: true (repeatable)")
	_ = cmd.MarkFlagRequired("pricing")
}

func (f *deployFlags) load() (domain.PricingConfig, deploy.DiffOptions, error) {
	cfg, err := pricing.Load(f.pricingFile)
	if err != nil {
		return domain.PricingConfig{}, deploy.DiffOptions{}, err
	}
	return cfg, deploy.DiffOptions{ConfirmDelete: f.confirmDelete}, nil
}

func previewCmd(debug *bool) *cobra.Command {
	var f deployFlags
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show what apply would change, without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			pcfg, opts, err := f.load()
			if err != nil {
				return err
			}
			e, err := loadEnv(*debug)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			backend, err := app.OpenBackend(e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer backend.Close()
			svc := app.NewService(e.cfg, app.NewCatalog(e.cfg, e.logger), backend, e.logger)

			diff, err := svc.Preview(cmd.Context(), pcfg, opts)
			if err != nil {
				return err
			}
			printDiff(cmd.OutOrStdout(), diff)
			return nil
		},
	}
	f.bind(cmd)
	return cmd
}

func applyCmd(debug *bool) *cobra.Command {
	var (
		f   deployFlags
		yes bool
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a pricing file to the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			pcfg, opts, err := f.load()
			if err != nil {
				return err
			}
			e, err := loadEnv(*debug)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			backend, err := app.OpenBackend(e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer backend.Close()
			svc := app.NewService(e.cfg, app.NewCatalog(e.cfg, e.logger), backend, e.logger)

			out := cmd.OutOrStdout()
			diff, err := svc.Preview(cmd.Context(), pcfg, opts)
			if err != nil {
				return err
			}
			printDiff(out, diff)
			if diff.Empty() {
				return nil
			}
			if !yes {
				fmt.Fprintf(out, "Apply %d change(s)? [y/N] ", diff.Total())
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if !confirmed(answer) {
					fmt.Fprintln(out, muted("aborted"))
					return nil
				}
			}

			res, err := svc.RunPlanned(cmd.Context(), pcfg, opts, diff, func(p domain.DeploymentProgress) {
				fmt.Fprintln(out, progressLine(p))
			})
			if errors.Is(err, domain.ErrPlanChanged) {
				return fmt.Errorf("%w; run apply again to review the new diff", err)
			}
			if err != nil {
				return err
			}
			printResult(out, res)
			if !res.Success {
				return fmt.Errorf("deployment %s did not complete cleanly", res.RunID)
			}
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func listCmd(debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the vessels currently in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(*debug)
			if err != nil {
				return err
			}
			defer e.logger.Sync()

			vessels, err := app.NewCatalog(e.cfg, e.logger).ListVessels(cmd.Context())
			if err != nil {
				return err
			}
			if len(vessels) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), muted("no vessels in the store"))
				return nil
			}
			sort.Slice(vessels, func(i, j int) bool { return vessels[i].Handle < vessels[j].Handle })
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Handle", "Title", "State", "Variants", "Product"},
				vesselRows(vessels),
			))
			return nil
		},
	}
}

func hashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key",
		Short: "Print the SERVICE_KEY_HASH value for a service key read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && key == "" {
				return fmt.Errorf("read key: %w", err)
			}
			key = strings.TrimRight(key, "\r\n")
			if key == "" {
				return fmt.Errorf("empty key")
			}
			hash, err := auth.HashAPIKey(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
