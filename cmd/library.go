package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/librec/internal/models"
	"github.com/desertthunder/librec/internal/repositories"
	"github.com/desertthunder/librec/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a starter config file and initializes the snapshot database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		r.logger.Warnf("%v", err)
	} else {
		r.writePlain("✓ Wrote %s\n", configPath)
	}

	if _, err := r.ensureDB(); err != nil {
		return err
	}
	return r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
}

// LibraryImport loads a JSON snapshot into the database.
func (r *Runner) LibraryImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: missing snapshot path", shared.ErrInvalidInput)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	lib, err := models.ParseLibrary(data)
	if err != nil {
		return err
	}

	db, err := r.ensureDB()
	if err != nil {
		return err
	}
	if err := repositories.NewLibraryRepository(db).Save(repositories.DefaultSlot, lib); err != nil {
		return err
	}

	r.logger.Infof("imported library from %v", path)
	return r.writePlain("✓ Imported %d playlists and %d albums\n", len(lib.Playlists), len(lib.Albums))
}

// LibraryExport writes the stored snapshot as JSON.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.loadLibrary()
	if err != nil {
		return err
	}

	pretty := cmd.Bool("pretty")
	if outputFile := cmd.String("output"); outputFile != "" {
		data, err := shared.MarshalJSON(lib, pretty)
		if err != nil {
			return err
		}
		if err := os.WriteFile(outputFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		return r.writePlain("✓ Library exported to %s\n", outputFile)
	}

	return r.writeJSON(lib, pretty)
}

// LibraryStatus summarizes the stored snapshot.
func (r *Runner) LibraryStatus(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.loadLibrary()
	if err != nil {
		return err
	}

	r.writePlain("Playlists: %d\n", len(lib.Playlists))
	for _, pl := range lib.Playlists {
		matched := 0
		for _, t := range pl.Tracks {
			if t.Remote.State() == models.Matched {
				matched++
			}
		}
		r.writePlain("  %s - %d tracks, %d matched\n", pl.Name, len(pl.Tracks), matched)
	}

	r.writePlain("Albums: %d\n", len(lib.Albums))
	for _, album := range lib.Albums {
		r.writePlain("  %s - %s\n", album.Name, album.Remote.String())
	}
	return nil
}

// LibraryClear deletes the stored snapshot.
func (r *Runner) LibraryClear(ctx context.Context, cmd *cli.Command) error {
	db, err := r.ensureDB()
	if err != nil {
		return err
	}
	if err := repositories.NewLibraryRepository(db).Clear(repositories.DefaultSlot); err != nil {
		return err
	}
	return r.writePlain("✓ Library snapshot cleared\n")
}

func (r *Runner) loadLibrary() (*models.Library, error) {
	db, err := r.ensureDB()
	if err != nil {
		return nil, err
	}
	lib, err := repositories.NewLibraryRepository(db).Load(repositories.DefaultSlot)
	if err != nil {
		return nil, fmt.Errorf("%w: run `library import` first", err)
	}
	return lib, nil
}

func (r *Runner) saveLibrary(lib *models.Library) error {
	db, err := r.ensureDB()
	if err != nil {
		return err
	}
	return repositories.NewLibraryRepository(db).Save(repositories.DefaultSlot, lib)
}
