package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users across companies",
	}
	cmd.AddCommand(userListCmd())
	cmd.AddCommand(userSetRoleCmd())
	cmd.AddCommand(userDeleteCmd())
	return cmd
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every user of every company",
		Run: func(cmd *cobra.Command, args []string) {
			users, err := apiClient.Users.List(context.Background())
			if err != nil {
				fatal("list users", err)
			}
			if flagFmt == "table" {
				headers := []string{"ID", "COMPANY", "NAME", "EMAIL", "ROLE"}
				var rows [][]string
				for _, u := range users {
					rows = append(rows, []string{u.ID, u.TenantName, u.FullName, u.Email, u.Role})
				}
				formatTable(headers, rows)
				return
			}
			if flagFmt == "quiet" {
				for _, u := range users {
					fmt.Println(u.ID)
				}
				return
			}
			output(users, "")
		},
	}
}

func userSetRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <company-id> <user-id> <role>",
		Short: "Change a user's role (user|admin)",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			user, err := apiClient.Users.SetRole(context.Background(), args[0], args[1], args[2])
			if err != nil {
				fatal("set role", err)
			}
			output(user, user.ID)
		},
	}
}

func userDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <company-id> <user-id>",
		Short: "Delete a user from a company",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if !yes {
				fatal("delete user", fmt.Errorf("refusing to delete without --yes"))
			}
			if err := apiClient.Users.Delete(context.Background(), args[0], args[1]); err != nil {
				fatal("delete user", err)
			}
			fmt.Println("deleted")
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}
