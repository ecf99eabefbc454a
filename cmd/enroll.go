package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/biometric"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/registration"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Register an employee from the command line",
	Long: `Runs one registration session against the configured capture device:
validates the form, counts down, records and enrolls the captured face.

Examples:
  face-attendance enroll --name "Jana Nováková" --employee-id E-1042 --department Engineering`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("name", "", "Full name")
	enrollCmd.Flags().String("employee-id", "", "Employee ID (letters, digits and dashes)")
	enrollCmd.Flags().String("department", "", "Department")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	form := biometric.FormData{
		Name:       mustGetString(cmd, "name"),
		EmployeeID: mustGetString(cmd, "employee-id"),
		Department: mustGetString(cmd, "department"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, storage, err := newDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	persisted := make(chan error, 1)
	ctrl := registration.New(deps.Devices, deps.Client, registration.Options{
		Departments: cfg.Session.Departments,
		Timing:      registration.TimingFromConfig(&cfg.Session),
		Constraints: handlers.DeviceConstraints(cfg),
		Clock:       deps.Clock,
		Handoff: registration.HandoffFunc(func(ctx context.Context, p biometric.EnrolledProfile) error {
			err := handlers.ProfileHandoff{}.PersistAndNavigate(ctx, p)
			persisted <- err
			return err
		}),
	})
	defer ctrl.Close()

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	if err := ctrl.Submit(form); err != nil {
		var verr *registration.ValidationError
		if errors.As(err, &verr) {
			printFieldErrors(verr.Fields, cfg.Session.Departments)
			return errors.New("registration form rejected")
		}
		return err
	}

	profile, err := followRegistration(ctx, ctrl, updates)
	if err != nil {
		return err
	}

	select {
	case err := <-persisted:
		if err != nil {
			return fmt.Errorf("persisting profile: %w", err)
		}
	case <-time.After(10 * time.Second):
		return errors.New("timed out persisting profile")
	}

	fmt.Printf("\nRegistered %s\n", profile.Name)
	fmt.Printf("  ID:          %s\n", profile.ID)
	fmt.Printf("  Employee ID: %s\n", profile.EmployeeID)
	fmt.Printf("  Department:  %s\n", profile.Department)
	return nil
}

func printFieldErrors(fields registration.FieldErrors, departments []string) {
	for _, key := range []string{registration.FieldName, registration.FieldEmployeeID, registration.FieldDepartment} {
		if msg, ok := fields[key]; ok {
			fmt.Printf("  %-12s %s\n", key+":", msg)
		}
	}
	if _, ok := fields[registration.FieldDepartment]; ok {
		fmt.Printf("\nDepartments: %v\n", departments)
	}
}

// followRegistration drives the session from the command line: it makes the
// start gesture once the device is ready and renders countdown, recording
// progress and processing messages until the session resolves.
func followRegistration(ctx context.Context, ctrl *registration.Controller, updates <-chan registration.State) (*biometric.EnrolledProfile, error) {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("Recording"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	started := false
	lastCountdown := -1
	var shown []string

	for {
		var state registration.State
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case s, ok := <-updates:
			if !ok {
				return nil, errors.New("registration closed")
			}
			state = s
		}

		switch state.Phase {
		case registration.PhaseCapturing:
			switch state.Step {
			case registration.StepDeviceError:
				return nil, fmt.Errorf("capture device: %s", state.DeviceError)
			case registration.StepAwaitingGesture:
				if !started {
					started = true
					fmt.Println("Camera ready. Look into the camera.")
					if err := ctrl.StartRecording(); err != nil {
						return nil, fmt.Errorf("starting capture: %w", err)
					}
				}
			case registration.StepCountdown:
				if state.Countdown != lastCountdown && state.Countdown > 0 {
					lastCountdown = state.Countdown
					fmt.Printf("%d...\n", state.Countdown)
				}
			case registration.StepRecording:
				_ = bar.Set(int(state.Progress))
			}

		case registration.PhaseProcessing:
			if !bar.IsFinished() {
				_ = bar.Finish()
				fmt.Println()
			}
			if msg := state.ProcessingMessage; msg != "" && !slices.Contains(shown, msg) {
				shown = append(shown, msg)
				fmt.Println(msg)
			}

		case registration.PhaseSuccess:
			return state.Profile, nil

		case registration.PhaseFailure:
			return nil, fmt.Errorf("registration failed: %s", state.Message)
		}
	}
}
