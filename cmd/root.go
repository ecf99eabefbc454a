package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Face-based employee registration and attendance",
	Long: `Face Attendance enrolls employees with a captured face image and records
attendance by recognizing them at a scan station. It runs as a web server
hosting registration and scan screens, or from the command line.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
	logging.Init(os.Getenv("LOG_LEVEL"))
}
