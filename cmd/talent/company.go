package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talentgraph/talentgraph-go/internal/normalize"
	"github.com/talentgraph/talentgraph-go/internal/storage"
)

var companyCmd = &cobra.Command{
	Use:   "company",
	Short: "Correct company records",
}

var companyDomainCmd = &cobra.Command{
	Use:   "domain <company> <domain>",
	Short: "Promote a placeholder domain to the real one",
	Long: `Companies created from a bare name carry a synthetic <slug>.placeholder
domain. This upgrades it in place, preserving the company ID. Re-running
with the same domain is a no-op; a company that already has a real
domain is left untouched.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		companyID, err := resolveCompanyArg(ctx, store, args[0])
		if err != nil {
			return err
		}

		holder, err := store.GetCompanyByDomain(ctx, args[1])
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if holder != nil && holder.ID != companyID {
			return fmt.Errorf("domain %s already belongs to %q (%s)", args[1], holder.CompanyName, holder.ID)
		}

		if err := store.PromoteDomain(ctx, companyID, args[1]); err != nil {
			return err
		}
		fmt.Printf("Company %s domain set to %s\n", companyID, args[1])
		return nil
	},
}

var companyOrgCmd = &cobra.Command{
	Use:   "org <company> <github-org>",
	Short: "Record a company's GitHub organization",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		companyID, err := resolveCompanyArg(ctx, store, args[0])
		if err != nil {
			return err
		}
		// Accept a bare slug, a github.com URL, or a portfolio-style
		// blurb containing one.
		org := normalize.GitHubOrg(args[1])
		if org == "" && !strings.ContainsAny(args[1], " /") {
			org = normalize.GitHubOrg("github.com/" + args[1])
		}
		if org == "" {
			return fmt.Errorf("invalid github org %q", args[1])
		}

		if err := store.SetGithubOrg(ctx, companyID, org); err != nil {
			return err
		}
		fmt.Printf("Company %s linked to github.com/%s\n", companyID, org)
		return nil
	},
}

// resolveCompanyArg maps a CLI company identifier (UUID or name) to an ID.
func resolveCompanyArg(ctx context.Context, store *storage.Store, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	ix, err := warmIndex(ctx, store)
	if err != nil {
		return uuid.Nil, err
	}
	if id, ok := ix.CompanyByName(arg); ok {
		return id, nil
	}
	return uuid.Nil, fmt.Errorf("no company found for %q (use a UUID or company name)", arg)
}

func init() {
	companyCmd.AddCommand(companyDomainCmd)
	companyCmd.AddCommand(companyOrgCmd)
}
