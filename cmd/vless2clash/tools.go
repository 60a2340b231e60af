package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/vless2clash/internal/fetch"
	"github.com/John-Robertt/vless2clash/internal/iplookup"
	"github.com/John-Robertt/vless2clash/internal/uuidgen"
)

func newIPLookupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ip-lookup [ip]",
		Short: "Look up geolocation and ASN of an IP (default: this host's public IP)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ip string
			if len(args) == 1 {
				ip = args[0]
			}
			c := &iplookup.Client{
				BaseURL: a.cfg.IPLookup.BaseURL,
				Fetch: fetch.Options{
					Timeout:   a.cfg.IPLookup.Timeout,
					UserAgent: a.cfg.Fetch.UserAgent,
				},
			}
			info, err := c.Lookup(cmd.Context(), ip)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
}

func newUUIDCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "uuid",
		Short: "Generate random v4 UUIDs for VLESS user ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range uuidgen.Generate(n) {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 1, fmt.Sprintf("number of UUIDs (%d..%d)", uuidgen.MinCount, uuidgen.MaxCount))
	return cmd
}
