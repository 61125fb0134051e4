package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dailymission/internal/config"
	"dailymission/internal/database"
	"dailymission/internal/service"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Clear existing data before import (WARNING: destructive)")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	ctx := context.Background()

	cfg := config.Load()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		fatal("Failed to initialize database", err)
	}
	defer db.Close()

	// Schema must exist before export or import
	if err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
		fatal("Failed to run migrations", err)
	}

	backupService := service.NewBackupService(db, logger)

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		handleExport(ctx, backupService, *exportOutput)

	case "import":
		importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, backupService, *importInput, *importClear)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, backupService *service.BackupService, outputPath string) {
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fatal("Failed to create output directory", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		fatal("Failed to create output file", err)
	}

	slog.Info("Exporting database", slog.String("path", outputPath))
	backup, err := backupService.Export(ctx, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(outputPath)
		fatal("Export failed", err)
	}

	info, _ := os.Stat(outputPath)
	slog.Info("Export complete",
		slog.Int("users", len(backup.Users)),
		slog.Int("missions", len(backup.Missions)),
		slog.String("size", fmt.Sprintf("%.2f MB", float64(info.Size())/1024/1024)))
}

func handleImport(ctx context.Context, backupService *service.BackupService, inputPath string, clearData bool) {
	f, err := os.Open(inputPath)
	if err != nil {
		fatal("Failed to open input file", err)
	}
	defer f.Close()

	if clearData {
		fmt.Print("WARNING: This will delete all existing data. Type 'yes' to confirm: ")
		var confirmation string
		fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			slog.Info("Import cancelled")
			return
		}
	}

	slog.Info("Importing database", slog.String("path", inputPath), slog.Bool("clear", clearData))
	if err := backupService.Import(ctx, f, clearData); err != nil {
		fatal("Import failed", err)
	}

	slog.Info("Import complete")
}

func fatal(msg string, err error) {
	slog.Error(msg, slog.Any("error", err))
	os.Exit(1)
}

func printUsage() {
	fmt.Println("Daily Mission Database Backup Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [options]    Export database to JSON file")
	fmt.Println("  backup import [options]    Import database from JSON file")
	fmt.Println()
	fmt.Println("Export Options:")
	fmt.Println("  -output <file>    Output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	fmt.Println()
	fmt.Println("Import Options:")
	fmt.Println("  -input <file>     Input file path (required)")
	fmt.Println("  -clear            Clear existing data before import (WARNING: destructive)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_TYPE          Database type: sqlite, postgres, or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./dailymission.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
