package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"blockcam/internal/catalog"
	"blockcam/internal/model"
	"blockcam/internal/repository"
	"blockcam/internal/repository/sqlite"
	"blockcam/internal/service/storage"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

type migrateStats struct {
	inserted int
	existing int
	skipped  int
}

func main() {
	outputDir := flag.String("output", "output_images", "Directory containing captured images")
	dbPath := flag.String("db", filepath.Join("data", "blockcam.db"), "Database path")
	gameName := flag.String("game", "town", "Game the images belong to")
	catalogPath := flag.String("catalog", "", "Catalog file (embedded default when empty)")
	pattern := flag.String("pattern", "**/*.png", "Glob of files to import, relative to -output")
	reset := flag.Bool("reset", false, "Delete the whole capture history before importing")
	flag.Parse()

	cat, err := catalog.Load(*catalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	game, err := cat.Game(*gameName)
	if err != nil {
		log.Fatalf("Failed to find game: %v", err)
	}

	fmt.Printf("Migrating captures from %s to database %s\n", *outputDir, *dbPath)

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	repo := sqlite.NewCaptureRepository(db)

	if *reset {
		if err := repo.DeleteAll(); err != nil {
			log.Fatalf("Failed to reset history: %v", err)
		}
		fmt.Println("Existing capture history deleted")
	}

	stats, err := importCaptures(repo, game, *outputDir, *pattern)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if stats.inserted == 0 {
		fmt.Println("No new captures found to migrate")
	} else {
		fmt.Printf("Successfully migrated %d captures to database\n", stats.inserted)
	}
	if stats.existing > 0 {
		fmt.Printf("Kept %d captures already in the database\n", stats.existing)
	}
	if stats.skipped > 0 {
		fmt.Printf("Skipped %d files (not a final capture of %s)\n", stats.skipped, game.Name)
	}

	total, err := repo.GetStats()
	if err == nil {
		fmt.Printf("\nDatabase Statistics:\n")
		fmt.Printf("   Total captures: %d\n", total.TotalCaptures)
		fmt.Printf("   Total size: %d bytes\n", total.TotalSizeBytes)
		fmt.Printf("   Per category:\n")
		for category, count := range total.PerCategory {
			fmt.Printf("      - %s: %d captures\n", category, count)
		}
	}
}

// importCaptures records every final capture file of game under outputDir.
// Files that already have a record are left alone, so it can be re-run.
func importCaptures(repo repository.CaptureRepository, game *catalog.Game, outputDir, pattern string) (migrateStats, error) {
	var stats migrateStats

	matches, err := doublestar.Glob(os.DirFS(outputDir), pattern)
	if err != nil {
		return stats, fmt.Errorf("failed to scan %s: %w", outputDir, err)
	}

	// A result_ file is only final when trimming it failed.
	trimmed := make(map[string]bool)
	for _, rel := range matches {
		if st, err := storage.ParseFilename(rel); err == nil && st.Kind == storage.KindTrimmed {
			trimmed[st.Label] = true
		}
	}

	for _, rel := range matches {
		st, err := storage.ParseFilename(rel)
		if err != nil || st.Kind == storage.KindTemp || (st.Kind == storage.KindResult && trimmed[st.Label]) {
			stats.skipped++
			continue
		}
		if _, err := game.Category(st.Label); err != nil {
			log.Printf("Skipping %s: %v", rel, err)
			stats.skipped++
			continue
		}

		path := filepath.Join(outputDir, filepath.FromSlash(rel))
		existing, err := repo.GetByFilePath(game.Name, path)
		if err != nil {
			return stats, err
		}
		if existing != nil {
			stats.existing++
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			log.Printf("Failed to get info for %s: %v", rel, err)
			stats.skipped++
			continue
		}

		ts := st.Timestamp
		if ts.IsZero() {
			ts = info.ModTime()
		}
		mode := catalog.ModeDetect
		if st.Kind == storage.KindGuide {
			mode = catalog.ModeGuide
		}

		_, err = repo.Insert(&model.Capture{
			UUID:      uuid.NewString(),
			Game:      game.Name,
			Category:  st.Label,
			Mode:      string(mode),
			Filename:  filepath.Base(path),
			FilePath:  path,
			FileSize:  info.Size(),
			Timestamp: ts.In(time.Local),
		})
		if err != nil {
			return stats, fmt.Errorf("failed to insert %s: %w", rel, err)
		}
		stats.inserted++
	}
	return stats, nil
}
