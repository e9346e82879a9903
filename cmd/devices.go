package main

import (
	"fmt"

	"github.com/netaudit/AuditAgent/internal/inventory"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newDevicesCmd() *cobra.Command {
	var flagDevices string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Validate the device inventory and print its entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := inventory.Load(flagDevices)
			if err != nil {
				return err
			}
			if len(inv.Devices) == 0 {
				return errors.Errorf("no devices found in %s", flagDevices)
			}
			for _, device := range inv.Devices {
				fmt.Println(device)
			}
			log.Info().
				Int("devices", len(inv.Devices)).
				Str("inventory", flagDevices).
				Msg("inventory ok")
			return nil
		},
	}

	cmd.Flags().StringVar(&flagDevices, "devices", "devices.txt", "device inventory: plain list or .yaml run description")

	return cmd
}
