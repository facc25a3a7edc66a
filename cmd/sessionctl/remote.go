package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dreamware/sessid/internal/cluster"
)

func newOpenCommand() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a session on a running sessiond",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp cluster.SessionResponse
			if err := cluster.PostJSON(cmd.Context(), server+"/sessions", struct{}{}, &resp); err != nil {
				return err
			}
			printID(cmd.OutOrStdout(), resp.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", envOr("SESSIOND_URL", "http://127.0.0.1:8081"), "sessiond base URL")
	return cmd
}

func newServersCommand() *cobra.Command {
	var coord string

	cmd := &cobra.Command{
		Use:   "servers",
		Short: "List the server ids claimed at the coordinator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var list cluster.ServerList
			if err := cluster.GetJSON(cmd.Context(), coord+"/servers", &list); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SERVER ID\tADDR")
			for _, s := range list.Servers {
				fmt.Fprintf(tw, "%d\t%s\n", s.ServerID, s.Addr)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&coord, "coordinator", envOr("COORDINATOR_URL", "http://127.0.0.1:8080"), "coordinator base URL")
	return cmd
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
