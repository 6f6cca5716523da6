package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"attendgw/internal/attendance"
)

var (
	punchLat float64
	punchLng float64
)

var inCmd = &cobra.Command{
	Use:   "in",
	Short: "Check in",
	Args:  cobra.NoArgs,
	RunE:  runIn,
}

var outCmd = &cobra.Command{
	Use:   "out",
	Short: "Check out",
	Args:  cobra.NoArgs,
	RunE:  runOut,
}

func init() {
	for _, cmd := range []*cobra.Command{inCmd, outCmd} {
		cmd.Flags().Float64Var(&punchLat, "lat", 0, "Latitude to record")
		cmd.Flags().Float64Var(&punchLng, "lng", 0, "Longitude to record")
	}
}

// coords returns the flag coordinates, or nils when not provided.
func coords(cmd *cobra.Command) (*float64, *float64) {
	if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
		return nil, nil
	}
	lat, lng := punchLat, punchLng
	return &lat, &lng
}

func runIn(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	cfg, _, rec, err := connect(ctx)
	if err != nil {
		return err
	}

	if rec.Status(ctx).CheckedIn {
		return errors.New("already checked in")
	}

	lat, lng := coords(cmd)
	res := rec.CheckIn(ctx, lat, lng)
	rememberDowngrade(cfg, rec)
	if !res.Success {
		return fmt.Errorf("check-in failed: %s", res.Error)
	}
	fmt.Printf("Checked in (record %d).\n", res.RecordID)
	return nil
}

func runOut(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	cfg, _, rec, err := connect(ctx)
	if err != nil {
		return err
	}

	status := rec.Status(ctx)
	if !status.CheckedIn {
		return errors.New("no open attendance to check out of")
	}

	lat, lng := coords(cmd)
	res := rec.CheckOut(ctx, status.RecordID, lat, lng)
	rememberDowngrade(cfg, rec)
	if !res.Success {
		return fmt.Errorf("check-out failed: %s", res.Error)
	}

	worked := attendance.FormatElapsed(status.Elapsed(time.Now()))
	fmt.Printf("Checked out (record %d). Session length: %s\n", res.RecordID, worked)
	return nil
}
