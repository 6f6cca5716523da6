package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"attendgw/internal/attendance"
	"attendgw/internal/odoo"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent attendance records",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of records to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	cfg, src, _, err := connect(ctx)
	if err != nil {
		return err
	}

	records, err := src.Recent(ctx, cfg.EmployeeID, historyLimit, !cfg.GeoUnsupported)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No attendance records.")
		return nil
	}

	now := time.Now()
	for _, rec := range records {
		out := "(open)"
		if rec.CheckOut != nil {
			out = odoo.FormatDatetime(*rec.CheckOut)
		}
		fmt.Printf("%s  ->  %-19s  %s\n",
			odoo.FormatDatetime(rec.CheckIn), out, attendance.FormatElapsed(rec.Worked(now)))
	}
	return nil
}
