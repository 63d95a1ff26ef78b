// cmd/sshdeck/hosts.go

package main

import (
	"fmt"
	"strconv"

	"sshDeck/internal/models"
	"sshDeck/internal/ui"

	"github.com/spf13/cobra"
)

func newHostsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "List saved hosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hosts := a.store.GetHosts()
			if len(hosts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved hosts. Use --save NAME when connecting.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), hostsTable(hosts))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "rm NAME",
		Short: "Remove a saved host",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.DeleteHost(args[0]); err != nil {
				return err
			}
			if err := a.store.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	})
	return cmd
}

func hostsTable(hosts []models.Host) string {
	rows := make([][]string, 0, len(hosts))
	for _, h := range hosts {
		proxy := "-"
		if h.Proxy != nil {
			proxy = h.Proxy.Addr()
		}
		rows = append(rows, []string{
			h.Name,
			h.Login,
			h.Address,
			strconv.Itoa(h.Port),
			string(h.Auth),
			proxy,
		})
	}
	return ui.CreateLipglossTable([]string{"Name", "Login", "Address", "Port", "Auth", "Proxy"}, rows, -1)
}
