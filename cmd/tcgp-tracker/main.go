// Package main provides the tcgp-tracker command line interface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/netzhuffle/tcgp-tracker/internal/storage"
	"github.com/netzhuffle/tcgp-tracker/internal/storage/repository"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/catalog"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/collection"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/idcache"
	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/probability"
	"github.com/netzhuffle/tcgp-tracker/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "migrate":
		runMigrateCommand(os.Args[2:])
	case "sync":
		runSyncCommand(os.Args[2:])
	case "stats":
		runStatsCommand(os.Args[2:])
	case "probability":
		runProbabilityCommand(os.Args[2:])
	case "backup":
		runBackupCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("TCG Pocket Tracker %s\n", version.GetVersion())
	fmt.Println("==================")
	fmt.Println()
	fmt.Println("Usage: tcgp-tracker <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  sync         - Synchronize the card catalog from a source file")
	fmt.Println("  stats        - Show collection completion and pack probabilities")
	fmt.Println("  probability  - Compute the new-card probability for one booster")
	fmt.Println("  migrate      - Run database migrations (up/down/status)")
	fmt.Println("  backup       - Manage database backups (create/list/restore)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  tcgp-tracker sync -source cards.yaml")
	fmt.Println("  tcgp-tracker stats -user 1")
	fmt.Println("  tcgp-tracker probability -user 1 -set A1 -booster Charizard")
	fmt.Println("  tcgp-tracker migrate up")
	fmt.Println("  tcgp-tracker backup create")
	fmt.Println()
}

// getDBPath returns the database path from the environment or the
// default location under the home directory.
func getDBPath() string {
	if dbPath := os.Getenv("TCGP_DB_PATH"); dbPath != "" {
		return dbPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Error getting home directory: %v", err)
	}
	return filepath.Join(home, ".tcgp-tracker", "collection.db")
}

// services bundles everything a subcommand needs against one database.
type services struct {
	db          *storage.DB
	logger      *zap.Logger
	cache       *idcache.Cache
	sets        repository.SetRepository
	boosters    repository.BoosterRepository
	cards       repository.CardRepository
	ownership   repository.OwnershipRepository
	collection  *collection.Service
	synchronize *catalog.Synchronizer
}

func openServices(debug bool) *services {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}

	config := storage.DefaultConfig(getDBPath())
	config.AutoMigrate = true
	db, err := storage.Open(config)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}

	cache := idcache.New()
	s := &services{
		db:        db,
		logger:    logger,
		cache:     cache,
		sets:      repository.NewSetRepository(db.Conn(), cache),
		boosters:  repository.NewBoosterRepository(db.Conn(), cache),
		cards:     repository.NewCardRepository(db.Conn()),
		ownership: repository.NewOwnershipRepository(db.Conn()),
	}
	prob := probability.NewService(s.cards, logger)
	s.collection = collection.NewService(s.sets, s.boosters, s.cards, s.ownership, cache, prob, logger)
	s.synchronize = catalog.NewSynchronizer(s.sets, s.boosters, s.cards, cache, logger)
	return s
}

func (s *services) close() {
	if err := s.db.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
	_ = s.logger.Sync()
}

func runSyncCommand(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	source := fs.String("source", "", "Path to the catalog source file (required)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	_ = fs.Parse(args)

	if *source == "" {
		fmt.Fprintln(os.Stderr, "Error: -source is required")
		fs.Usage()
		os.Exit(1)
	}

	doc, err := catalog.Load(*source)
	if err != nil {
		log.Fatalf("Error loading catalog source: %v", err)
	}

	s := openServices(*debug)
	defer s.close()

	report, err := s.synchronize.Synchronize(context.Background(), doc)
	fmt.Printf("Sets created:     %d\n", report.SetsCreated)
	fmt.Printf("Boosters created: %d\n", report.BoostersCreated)
	fmt.Printf("Cards created:    %d\n", report.CardsCreated)
	fmt.Printf("Cards skipped:    %d\n", report.CardsSkipped)
	if err != nil {
		log.Fatalf("Synchronization finished with errors: %v", err)
	}
	fmt.Println("Catalog synchronized successfully!")
}

func runStatsCommand(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	userID := fs.Int64("user", 0, "User ID (required)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	_ = fs.Parse(args)

	if *userID == 0 {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		fs.Usage()
		os.Exit(1)
	}

	s := openServices(*debug)
	defer s.close()

	stats, err := s.collection.Stats(context.Background(), *userID)
	if err != nil {
		log.Fatalf("Error computing stats: %v", err)
	}

	for _, set := range stats {
		owned := set.Total - set.Missing
		fmt.Printf("%s %s: %d/%d\n", set.Set.Key, set.Set.Name, owned, set.Total)
		for _, booster := range set.Boosters {
			fmt.Printf("  %-20s %d/%d  new-card chance %.2f%%\n",
				booster.Booster.Name,
				booster.Total-booster.Missing, booster.Total,
				booster.Probability*100)
		}
	}
}

func runProbabilityCommand(args []string) {
	fs := flag.NewFlagSet("probability", flag.ExitOnError)
	userID := fs.Int64("user", 0, "User ID (required)")
	setKey := fs.String("set", "", "Set key, e.g. A1 (required)")
	boosterName := fs.String("booster", "", "Booster name (defaults to the set's only booster)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	_ = fs.Parse(args)

	if *userID == 0 || *setKey == "" {
		fmt.Fprintln(os.Stderr, "Error: -user and -set are required")
		fs.Usage()
		os.Exit(1)
	}

	s := openServices(*debug)
	defer s.close()
	ctx := context.Background()

	set, err := s.sets.GetByKey(ctx, *setKey)
	if err != nil {
		log.Fatalf("Error loading set: %v", err)
	}
	if set == nil {
		log.Fatalf("Unknown set: %s", *setKey)
	}

	boosters, err := s.boosters.ListBySet(ctx, set.ID)
	if err != nil {
		log.Fatalf("Error listing boosters: %v", err)
	}

	var boosterID int64
	switch {
	case *boosterName != "":
		booster, err := s.boosters.GetByNameAndSet(ctx, *boosterName, set)
		if err != nil {
			log.Fatalf("Error loading booster: %v", err)
		}
		if booster == nil {
			log.Fatalf("Unknown booster %q in set %s", *boosterName, *setKey)
		}
		boosterID = booster.ID
	case len(boosters) == 1:
		boosterID = boosters[0].ID
	default:
		log.Fatalf("Set %s has %d boosters; pick one with -booster", *setKey, len(boosters))
	}

	p, err := s.collection.BoosterProbability(ctx, *userID, boosterID)
	if err != nil {
		log.Fatalf("Error computing probability: %v", err)
	}
	fmt.Printf("P(at least one new card) = %.4f (%.2f%%)\n", p, p*100)
}

func runMigrateCommand(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tcgp-tracker migrate <up|down|status>")
		os.Exit(1)
	}

	dbPath := getDBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		log.Fatalf("Error creating database directory: %v", err)
	}

	mgr, err := storage.NewMigrationManager(dbPath)
	if err != nil {
		log.Fatalf("Error creating migration manager: %v", err)
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			log.Printf("Error closing migration manager: %v", err)
		}
	}()

	switch args[0] {
	case "up":
		fmt.Println("Applying all pending migrations...")
		if err := mgr.Up(); err != nil {
			log.Fatalf("Error applying migrations: %v", err)
		}
		printMigrationVersion(mgr)
	case "down":
		fmt.Println("Rolling back last migration...")
		if err := mgr.Down(); err != nil {
			log.Fatalf("Error rolling back migration: %v", err)
		}
		printMigrationVersion(mgr)
	case "status", "version":
		printMigrationVersion(mgr)
	default:
		fmt.Fprintf(os.Stderr, "Unknown migrate command: %s\n", args[0])
		os.Exit(1)
	}
}

func printMigrationVersion(mgr *storage.MigrationManager) {
	version, dirty, err := mgr.Version()
	if err != nil {
		log.Fatalf("Error getting version: %v", err)
	}
	if dirty {
		fmt.Printf("Current version: %d (dirty - migration failed or interrupted)\n", version)
	} else {
		fmt.Printf("Current version: %d\n", version)
	}
}

func runBackupCommand(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tcgp-tracker backup <create|list|restore> [options]")
		os.Exit(1)
	}

	bm := storage.NewBackupManager(getDBPath())

	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("backup create", flag.ExitOnError)
		dir := fs.String("dir", "", "Backup directory (default: next to the database)")
		encrypt := fs.Bool("encrypt", false, "Encrypt the backup")
		password := fs.String("password", "", "Encryption password (required with -encrypt)")
		_ = fs.Parse(args[1:])

		backupPath, err := bm.Backup(*dir)
		if err != nil {
			log.Fatalf("Error creating backup: %v", err)
		}
		if *encrypt {
			if *password == "" {
				log.Fatal("Error: -password is required with -encrypt")
			}
			encryptedPath := backupPath + ".enc"
			if err := storage.EncryptFile(backupPath, encryptedPath, *password); err != nil {
				log.Fatalf("Error encrypting backup: %v", err)
			}
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Warning: could not remove plaintext backup: %v", err)
			}
			backupPath = encryptedPath
		}
		fmt.Printf("Backup created: %s\n", backupPath)

	case "list":
		fs := flag.NewFlagSet("backup list", flag.ExitOnError)
		dir := fs.String("dir", "", "Backup directory (default: next to the database)")
		_ = fs.Parse(args[1:])

		backups, err := bm.List(*dir)
		if err != nil {
			log.Fatalf("Error listing backups: %v", err)
		}
		if len(backups) == 0 {
			fmt.Println("No backups found.")
			return
		}
		for _, b := range backups {
			fmt.Printf("%s  %8d bytes  %s  sha256:%s\n",
				b.ModTime.Format("2006-01-02 15:04:05"), b.Size, b.Name, b.Checksum[:12])
		}

	case "restore":
		fs := flag.NewFlagSet("backup restore", flag.ExitOnError)
		password := fs.String("password", "", "Decryption password for encrypted backups")
		_ = fs.Parse(args[1:])
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "Usage: tcgp-tracker backup restore [-password pw] <backup-file>")
			os.Exit(1)
		}
		backupPath := fs.Arg(0)

		encrypted, err := storage.IsEncrypted(backupPath)
		if err != nil {
			log.Fatalf("Error inspecting backup: %v", err)
		}
		if encrypted {
			if *password == "" {
				log.Fatal("Error: backup is encrypted, -password is required")
			}
			decryptedPath := backupPath + ".decrypted"
			if err := storage.DecryptFile(backupPath, decryptedPath, *password); err != nil {
				log.Fatalf("Error decrypting backup: %v", err)
			}
			defer func() { _ = os.Remove(decryptedPath) }()
			backupPath = decryptedPath
		}

		if err := bm.Restore(backupPath); err != nil {
			log.Fatalf("Error restoring backup: %v", err)
		}
		fmt.Println("Database restored successfully!")

	default:
		fmt.Fprintf(os.Stderr, "Unknown backup command: %s\n", args[0])
		os.Exit(1)
	}
}
