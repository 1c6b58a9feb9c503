package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lherron/foldermerge/internal/db"
	"github.com/lherron/foldermerge/internal/render"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the health of a run's checkpoint database",
	Long: `Opens the checkpoint database at --db (or FOLDERMERGE_DB_PATH) and reports
on its pragmas, schema version, run state, and any stale temp files left
behind under the run's destination root.`,
	RunE: runDoctor,
}

var doctorJSON bool

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "Output JSON")
}

type checkResult struct {
	Name    string   `json:"name"`
	Status  string   `json:"status"` // "ok", "warning", "error"
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

type doctorReport struct {
	DBPath        string        `json:"db_path"`
	Checks        []checkResult `json:"checks"`
	Warnings      int           `json:"warnings"`
	Errors        int           `json:"errors"`
	OverallStatus string        `json:"overall_status"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	dbPath := cmd.Flag("db").Value.String()
	if dbPath == "" {
		dbPath = os.Getenv("FOLDERMERGE_DB_PATH")
	}
	if dbPath == "" {
		dbPath = "merge_checkpoint.db"
	}

	report := &doctorReport{DBPath: dbPath, OverallStatus: "ok"}
	report.Checks = append(report.Checks, checkDatabaseFile(dbPath)...)

	database, err := db.Open(dbPath)
	if err != nil {
		report.Checks = append(report.Checks, checkResult{
			Name:    "database_open",
			Status:  "error",
			Message: fmt.Sprintf("failed to open database: %v", err),
		})
	} else {
		defer database.Close()
		report.Checks = append(report.Checks, checkPragmas(database)...)
		report.Checks = append(report.Checks, checkSchema(database)...)
		report.Checks = append(report.Checks, checkRuns(database)...)
		report.Checks = append(report.Checks, checkPathCounts(database)...)
		report.Checks = append(report.Checks, checkStaleTempFiles(database)...)
	}

	for _, check := range report.Checks {
		switch check.Status {
		case "warning":
			report.Warnings++
		case "error":
			report.Errors++
			report.OverallStatus = "error"
		}
	}
	if report.Warnings > 0 && report.OverallStatus == "ok" {
		report.OverallStatus = "warning"
	}

	if doctorJSON {
		renderer := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON})
		return renderer.RenderJSON(report)
	}

	printDoctorReport(cmd.OutOrStdout(), report)

	if report.Errors > 0 {
		return exitCodeError{code: exitFatalError, err: fmt.Errorf("doctor found %d error(s)", report.Errors)}
	}
	return nil
}

func checkDatabaseFile(dbPath string) []checkResult {
	info, err := os.Stat(dbPath)
	if err != nil {
		return []checkResult{{
			Name:    "db_file_exists",
			Status:  "error",
			Message: fmt.Sprintf("database file not found: %s", dbPath),
		}}
	}
	return []checkResult{{
		Name:    "db_file_exists",
		Status:  "ok",
		Message: fmt.Sprintf("database file: %s (%.1f KB)", dbPath, float64(info.Size())/1024),
	}}
}

func checkPragmas(database *db.DB) []checkResult {
	var results []checkResult

	var journalMode string
	database.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if journalMode == "wal" {
		results = append(results, checkResult{Name: "wal_mode", Status: "ok", Message: "WAL mode enabled"})
	} else {
		results = append(results, checkResult{
			Name: "wal_mode", Status: "warning",
			Message: fmt.Sprintf("journal_mode is %q, expected wal", journalMode),
		})
	}

	var foreignKeys int
	database.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys)
	if foreignKeys == 1 {
		results = append(results, checkResult{Name: "foreign_keys", Status: "ok", Message: "foreign keys enabled"})
	} else {
		results = append(results, checkResult{Name: "foreign_keys", Status: "warning", Message: "foreign keys not enabled"})
	}

	var integrityCheck string
	database.QueryRow("PRAGMA integrity_check").Scan(&integrityCheck)
	if integrityCheck == "ok" {
		results = append(results, checkResult{Name: "integrity_check", Status: "ok", Message: "integrity check passed"})
	} else {
		results = append(results, checkResult{
			Name:    "integrity_check",
			Status:  "error",
			Message: fmt.Sprintf("integrity check failed: %s", integrityCheck),
			Details: []string{"the database file may be corrupted"},
		})
	}

	return results
}

func checkSchema(database *db.DB) []checkResult {
	applied, pending, err := database.MigrationStatus()
	if err != nil {
		return []checkResult{{Name: "schema_version", Status: "error", Message: err.Error()}}
	}
	if len(pending) > 0 {
		return []checkResult{{
			Name:    "schema_version",
			Status:  "error",
			Message: fmt.Sprintf("%d pending migration(s): %s", len(pending), strings.Join(pending, ", ")),
			Details: []string{"run a merge to apply pending migrations automatically"},
		}}
	}
	current := "none"
	if len(applied) > 0 {
		current = applied[len(applied)-1]
	}
	return []checkResult{{Name: "schema_version", Status: "ok", Message: fmt.Sprintf("up to date (%s)", current)}}
}

func checkRuns(database *db.DB) []checkResult {
	var count int
	if err := database.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		return []checkResult{{Name: "run_state", Status: "error", Message: err.Error()}}
	}
	if count == 0 {
		return []checkResult{{Name: "run_state", Status: "ok", Message: "no run recorded yet"}}
	}

	var id, aRoot, bRoot, destRoot, phase string
	err := database.QueryRow(`SELECT id, a_root, b_root, dest_root, phase FROM runs ORDER BY created_at DESC LIMIT 1`).
		Scan(&id, &aRoot, &bRoot, &destRoot, &phase)
	if err != nil {
		return []checkResult{{Name: "run_state", Status: "error", Message: err.Error()}}
	}

	status := "ok"
	if phase != "done" && phase != "aborted" {
		status = "warning"
	}
	return []checkResult{{
		Name:    "run_state",
		Status:  status,
		Message: fmt.Sprintf("run %s: phase=%s a=%s b=%s dest=%s", id, phase, aRoot, bRoot, destRoot),
	}}
}

func checkPathCounts(database *db.DB) []checkResult {
	rows, err := database.Query(`SELECT status, COUNT(*) FROM paths GROUP BY status`)
	if err != nil {
		return []checkResult{{Name: "path_counts", Status: "error", Message: err.Error()}}
	}
	defer rows.Close()

	var parts []string
	var failed int
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%d", status, n))
		if status == "failed" {
			failed = n
		}
	}

	if len(parts) == 0 {
		return []checkResult{{Name: "path_counts", Status: "ok", Message: "no paths recorded"}}
	}
	status := "ok"
	if failed > 0 {
		status = "warning"
	}
	return []checkResult{{Name: "path_counts", Status: status, Message: strings.Join(parts, " ")}}
}

func checkStaleTempFiles(database *db.DB) []checkResult {
	var destRoot, activeRunID string
	err := database.QueryRow(`SELECT dest_root, id FROM runs ORDER BY created_at DESC LIMIT 1`).Scan(&destRoot, &activeRunID)
	if err != nil {
		return nil
	}

	var stale []string
	filepath.WalkDir(destRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.Contains(d.Name(), ".part.") && !strings.HasSuffix(d.Name(), ".part."+activeRunID) {
			stale = append(stale, path)
		}
		return nil
	})

	if len(stale) == 0 {
		return []checkResult{{Name: "stale_temp_files", Status: "ok", Message: "no stale temp files under destination"}}
	}
	return []checkResult{{
		Name:    "stale_temp_files",
		Status:  "warning",
		Message: fmt.Sprintf("%d stale temp file(s) from earlier runs", len(stale)),
		Details: stale,
	}}
}

func printDoctorReport(w io.Writer, report *doctorReport) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	fmt.Fprintf(w, "database: %s\n\n", report.DBPath)
	for _, check := range report.Checks {
		switch check.Status {
		case "ok":
			green.Fprintf(w, "  ok    %s\n", check.Message)
		case "warning":
			yellow.Fprintf(w, "  warn  %s\n", check.Message)
		case "error":
			red.Fprintf(w, "  fail  %s\n", check.Message)
		}
		for _, detail := range check.Details {
			fmt.Fprintf(w, "          %s\n", detail)
		}
	}

	fmt.Fprintln(w)
	switch {
	case report.Errors > 0:
		red.Fprintf(w, "summary: %d error(s), %d warning(s)\n", report.Errors, report.Warnings)
	case report.Warnings > 0:
		yellow.Fprintf(w, "summary: %d warning(s)\n", report.Warnings)
	default:
		green.Fprintln(w, "summary: all checks passed")
	}
}
