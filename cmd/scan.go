package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Identify employees at the scan station",
	Long: `Opens the scan station, runs the requested number of scans and records
attendance for every verified identity.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Int("count", 1, "Number of scans to run")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	count := mustGetInt(cmd, "count")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, storage, err := newDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	recorded := make(chan error, 1)
	ctrl := recognition.New(deps.Devices, deps.Client, recognition.Options{
		Timing:      recognition.TimingFromConfig(&cfg.Session),
		Constraints: handlers.ScanConstraints(cfg),
		Clock:       deps.Clock,
		Recorder: recognition.RecorderFunc(func(ctx context.Context, p biometric.MatchedProfile, confidence float64, at time.Time) error {
			err := handlers.AttendanceLog{}.RecordAttendance(ctx, p, confidence, at)
			recorded <- err
			return err
		}),
	})
	defer ctrl.Close()

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	for i := range count {
		if i > 0 {
			if err := ctrl.Reset(); err != nil {
				return fmt.Errorf("resetting scan station: %w", err)
			}
		}
		state, err := runOneScan(ctx, ctrl, updates)
		if err != nil {
			return err
		}
		if state.Phase != recognition.PhaseMatched {
			fmt.Printf("%s: %s\n\n", state.Label, state.Message)
			continue
		}

		fmt.Printf("%s: %s (%s), %s\n", state.Label, state.Profile.Name, state.Profile.Initials, state.Profile.Department)
		fmt.Printf("  Confidence: %.0f%%\n", state.Confidence*100)
		select {
		case err := <-recorded:
			if err != nil {
				fmt.Printf("  Warning: attendance not recorded: %v\n", err)
			}
		case <-time.After(10 * time.Second):
			fmt.Printf("  Warning: timed out recording attendance\n")
		}
		fmt.Println()
	}
	return nil
}

// runOneScan waits for the device, starts a scan and prints every status
// label until the attempt resolves.
func runOneScan(ctx context.Context, ctrl *recognition.Controller, updates <-chan recognition.State) (recognition.State, error) {
	state := ctrl.State()
	var attempt uint64
	lastLabel := ""

	for {
		switch {
		case state.Device == recognition.DeviceError:
			return state, fmt.Errorf("capture device: %s", state.DeviceError)
		case attempt == 0 && state.CanScan():
			if err := ctrl.Scan(); err != nil {
				return state, fmt.Errorf("starting scan: %w", err)
			}
			attempt = state.Session
		case attempt != 0 && state.Session == attempt && state.Phase != recognition.PhaseIdle:
			if state.Phase.Terminal() {
				return state, nil
			}
			if state.Label != lastLabel {
				lastLabel = state.Label
				fmt.Println(state.Label)
			}
		}

		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case s, ok := <-updates:
			if !ok {
				return state, errors.New("scan station closed")
			}
			state = s
		}
	}
}
