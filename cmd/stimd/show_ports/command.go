package showports

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "show-ports",
		Short: "Show the available serial ports and flag the switchbox",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			ports, err := enumerator.GetDetailedPortsList()
			if err != nil {
				return err
			}

			if len(ports) == 0 {
				fmt.Println("No serial port found")
				return nil
			}

			for _, p := range ports {
				if !p.IsUSB {
					fmt.Println(p.Name)
					continue
				}

				mark := " "
				if p.VID == "2e8a" && p.PID == "000a" {
					mark = "*"
				}
				fmt.Printf("%s %s - PID: %s - VID: %s - SN: %s\n", mark, p.Name, p.PID, p.VID, p.SerialNumber)
			}

			return nil
		},
	}
}
