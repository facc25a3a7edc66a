package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dreamware/sessid/internal/session"
)

func newMintCommand() *cobra.Command {
	var (
		serverID int64
		now      int64
		policy   string
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint the initial session id for a server id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := session.ValidateServerID(serverID); err != nil {
				return err
			}
			p, err := session.ParsePolicy(policy)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("now") {
				now = nowMs()
			}
			printID(cmd.OutOrStdout(), session.Mint(serverID, now, p))
			return nil
		},
	}

	cmd.Flags().Int64Var(&serverID, "server-id", 0, "server id in [1,255]")
	cmd.Flags().Int64Var(&now, "now", 0, "timestamp in ms since the epoch (default: current time)")
	cmd.Flags().StringVar(&policy, "policy", "fixed", "shift policy: fixed or legacy")
	_ = cmd.MarkFlagRequired("server-id")
	return cmd
}

func newDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <id>",
		Short: "Split a session id into server id, timestamp bits and counter",
		Long:  "The id may be a signed decimal, 0x-prefixed hex, or 64 binary digits.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := session.ParseID(args[0])
			if err != nil {
				return err
			}
			printID(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func printID(w io.Writer, id int64) {
	parts := session.Decode(id)
	fmt.Fprintf(w, "id:        %d\n", id)
	fmt.Fprintf(w, "hex:       0x%016x\n", uint64(id))
	fmt.Fprintf(w, "binary:   %s\n", session.FormatBinary(id))
	fmt.Fprintf(w, "server id: %d\n", parts.ServerID)
	fmt.Fprintf(w, "time bits: %d\n", parts.TimeBits)
	fmt.Fprintf(w, "counter:   %d\n", parts.Counter)
}
