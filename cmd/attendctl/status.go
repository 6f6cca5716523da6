package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"attendgw/internal/attendance"
	"attendgw/internal/odoo"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current check-in status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	_, _, rec, err := connect(ctx)
	if err != nil {
		return err
	}

	status := rec.Status(ctx)
	if !status.CheckedIn {
		fmt.Println("Not checked in.")
		return nil
	}

	fmt.Println("Checked in:")
	fmt.Printf("  Since:   %s\n", odoo.FormatDatetime(status.CheckInTime))
	fmt.Printf("  Elapsed: %s\n", attendance.FormatElapsed(status.Elapsed(time.Now())))
	return nil
}
