package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tenantdesk/tenantdesk/client"
)

func newCompanyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Manage tenant companies",
	}
	cmd.AddCommand(companyListCmd())
	cmd.AddCommand(companyGetCmd())
	cmd.AddCommand(companySetCmd())
	cmd.AddCommand(companyDeleteCmd())
	cmd.AddCommand(companyUsersCmd())
	cmd.AddCommand(companyAPIKeyCmd())
	return cmd
}

func companyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all companies, newest first",
		Run: func(cmd *cobra.Command, args []string) {
			companies, err := apiClient.Companies.List(context.Background())
			if err != nil {
				fatal("list companies", err)
			}
			if flagFmt == "table" {
				headers := []string{"ID", "NAME", "SECTOR", "PLAN", "STATUS"}
				var rows [][]string
				for _, c := range companies {
					rows = append(rows, []string{c.ID, c.BusinessName, c.Sector, c.Plan, c.Status})
				}
				formatTable(headers, rows)
				return
			}
			if flagFmt == "quiet" {
				for _, c := range companies {
					fmt.Println(c.ID)
				}
				return
			}
			output(companies, "")
		},
	}
}

func companyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a company by ID",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			company, err := apiClient.Companies.Get(context.Background(), args[0])
			if err != nil {
				fatal("get company", err)
			}
			output(company, company.ID)
		},
	}
}

func companySetCmd() *cobra.Command {
	var plan, status string
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Change a company's plan and/or status",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if plan == "" && status == "" {
				fatal("set company", fmt.Errorf("at least one of --plan or --status is required"))
			}
			company, err := apiClient.Companies.Update(context.Background(), args[0], client.UpdateCompanyRequest{
				Plan:   plan,
				Status: status,
			})
			if err != nil {
				fatal("set company", err)
			}
			output(company, company.ID)
		},
	}
	cmd.Flags().StringVar(&plan, "plan", "", "Plan: free|starter|pro|enterprise")
	cmd.Flags().StringVar(&status, "status", "", "Status: active|suspended|inactive")
	return cmd
}

func companyDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a company and all its users",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if !yes {
				fatal("delete company", fmt.Errorf("refusing to delete without --yes"))
			}
			if err := apiClient.Companies.Delete(context.Background(), args[0]); err != nil {
				fatal("delete company", err)
			}
			fmt.Println("deleted")
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

func companyUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users <id>",
		Short: "List a company's users",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			users, err := apiClient.Companies.Users(context.Background(), args[0])
			if err != nil {
				fatal("list company users", err)
			}
			if flagFmt == "table" {
				headers := []string{"ID", "NAME", "EMAIL", "ROLE"}
				var rows [][]string
				for _, u := range users {
					rows = append(rows, []string{u.ID, u.FullName, u.Email, u.Role})
				}
				formatTable(headers, rows)
				return
			}
			output(users, "")
		},
	}
}

func companyAPIKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "api-key <id>",
		Short: "Rotate a company's sync API key (prints the new key once)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			key, err := apiClient.Companies.IssueAPIKey(context.Background(), args[0])
			if err != nil {
				fatal("rotate api key", err)
			}
			fmt.Println(key)
		},
	}
}
