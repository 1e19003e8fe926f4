package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&StatusCommand)
	RootCmd.AddCommand(&UnlinkCommand)
	RootCmd.AddCommand(&AuthURLCommand)
}

var StatusCommand = cobra.Command{
	Use:   "status <uid>",
	Short: "Show whether a user has linked Google Drive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		st, err := svc.Auth.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		data, err := json.Marshal(st)
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	},
}

var UnlinkCommand = cobra.Command{
	Use:   "unlink <uid>",
	Short: "Remove a user's stored refresh token and mark Drive as unlinked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.Auth.Disconnect(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Println("unlinked", args[0])
		return nil
	},
}

var AuthURLCommand = cobra.Command{
	Use:   "auth-url <uid>",
	Short: "Print the Google consent URL for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := services(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		url, err := svc.Auth.CreateAuthorizationURL(args[0])
		if err != nil {
			return err
		}
		cmd.Println(url)
		return nil
	},
}
