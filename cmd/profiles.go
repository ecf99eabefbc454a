package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List enrolled profiles",
	Long: `Lists the profiles stored in the configured database.
The query matches name, employee ID and department, ignoring case and diacritics.`,
	RunE: runProfiles,
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <profile-id>",
	Short: "Delete an enrolled profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesDelete,
}

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Show recent attendance records",
	RunE:  runAttendance,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(attendanceCmd)
	profilesCmd.AddCommand(profilesDeleteCmd)

	profilesCmd.Flags().String("query", "", "Filter by name, employee ID or department")
	profilesCmd.Flags().Bool("json", false, "Output as JSON")

	attendanceCmd.Flags().Int("limit", 25, "Number of records to show")
	attendanceCmd.Flags().Bool("json", false, "Output as JSON")
}

// openStorage connects the configured database. The in-memory fallback of
// the server is empty in a fresh process, so a database is required here.
func openStorage(ctx context.Context) (func(), error) {
	cfg := config.Load()
	if cfg.Database.URL == "" && cfg.MariaDB.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL or MARIADB_DSN environment variable is required")
	}
	storage, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return func() { storage.Close() }, nil
}

func runProfiles(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := mustGetString(cmd, "query")
	jsonOutput := mustGetBool(cmd, "json")

	closeStorage, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage()

	reader, err := database.GetProfileReader(ctx)
	if err != nil {
		return err
	}
	profiles, err := reader.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	profiles = database.FilterProfiles(profiles, query)

	if jsonOutput {
		return outputJSON(profiles)
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMPLOYEE ID\tDEPARTMENT\tEMBEDDING\tREGISTERED")
	fmt.Fprintln(w, "--\t----\t-----------\t----------\t---------\t----------")
	for i := range profiles {
		p := &profiles[i]
		embedding := "no"
		if p.HasEmbedding() {
			embedding = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, p.EmployeeID, p.Department, embedding, p.RegisteredAt.Format("2006-01-02 15:04"))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d profiles\n", len(profiles))
	return nil
}

func runProfilesDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	closeStorage, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage()

	writer, err := database.GetProfileWriter(ctx)
	if err != nil {
		return err
	}
	existing, err := writer.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("profile %s not found", args[0])
	}
	if err := writer.Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	fmt.Printf("Deleted profile %s (%s)\n", existing.ID, existing.Name)
	return nil
}

func runAttendance(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	limit := mustGetInt(cmd, "limit")
	jsonOutput := mustGetBool(cmd, "json")

	closeStorage, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage()

	writer, err := database.GetAttendanceWriter(ctx)
	if err != nil {
		return err
	}
	records, err := writer.ListRecent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list attendance: %w", err)
	}

	if jsonOutput {
		return outputJSON(records)
	}
	if len(records) == 0 {
		fmt.Println("No attendance records found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tNAME\tEMPLOYEE ID\tDEPARTMENT\tCONFIDENCE\tSTATUS")
	fmt.Fprintln(w, "----\t----\t-----------\t----------\t----------\t------")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.0f%%\t%s\n",
			r.RecordedAt.Format("2006-01-02 15:04:05"), r.Name, r.EmployeeID, r.Department, r.Confidence*100, r.Status)
	}
	w.Flush()
	return nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
