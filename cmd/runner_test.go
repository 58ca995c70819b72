package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/librec/internal/models"
	"github.com/desertthunder/librec/internal/repositories"
	"github.com/desertthunder/librec/internal/shared"
	helpers "github.com/desertthunder/librec/internal/testing"
	_ "github.com/mattn/go-sqlite3"
	"github.com/urfave/cli/v3"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := repositories.RunMigrations(db); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}
	return db
}

func testRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Output: output,
		DB:     testDB(t),
	})
	return runner, output
}

func runCommand(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "librec", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"librec"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.gateway == nil || runner.client == nil {
				t.Error("expected gateway and client to be assembled")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writePlain writes formatted text", func(t *testing.T) {
		runner, output := testRunner(t)
		if err := runner.writePlain("hello %s\n", "world"); err != nil {
			t.Fatalf("writePlain failed: %v", err)
		}
		if output.String() != "hello world\n" {
			t.Errorf("output = %q", output.String())
		}
	})

	t.Run("writeJSON writes a trailing newline", func(t *testing.T) {
		runner, output := testRunner(t)
		if err := runner.writeJSON(map[string]int{"n": 1}, false); err != nil {
			t.Fatalf("writeJSON failed: %v", err)
		}
		if output.String() != `{"n":1}`+"\n" {
			t.Errorf("output = %q", output.String())
		}
	})

	t.Run("write errors surface to the caller", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &helpers.FWriter{}, DB: testDB(t)})
		if err := runner.writePlain("hello\n"); err == nil {
			t.Error("expected writePlain to report the write failure")
		}
		if err := runner.writeJSON(map[string]int{"n": 1}, false); err == nil {
			t.Error("expected writeJSON to report the write failure")
		}
	})
}

func TestSetup(t *testing.T) {
	wd := helpers.MustGetwd(t)
	helpers.MustChdir(t, t.TempDir())
	defer helpers.MustChdir(t, wd)

	runner, output := testRunner(t)
	if err := runCommand(t, runner, "setup"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	helpers.AssertFileExists(t, "config.toml")
	if contents := helpers.MustReadFile(t, "config.toml"); !strings.Contains(contents, "[gateway]") {
		t.Errorf("config file is missing the gateway section: %s", contents)
	}
	if !strings.Contains(output.String(), "Database ready") {
		t.Errorf("output = %q", output.String())
	}
}

func TestLibraryCommands(t *testing.T) {
	snapshot := `{
		"playlists": [
			{"name": "Road Trip", "tracks": [
				{"title": "Holiday", "artists": [{"name": "Green Day"}], "remote_id": "t1"},
				{"title": "B-Side", "artists": [{"name": "Someone"}]}
			]}
		],
		"albums": [
			{"name": "American Idiot", "artists": [{"name": "Green Day"}], "tracks": []}
		]
	}`

	t.Run("import then status", func(t *testing.T) {
		runner, output := testRunner(t)

		path := filepath.Join(t.TempDir(), "library.json")
		if err := os.WriteFile(path, []byte(snapshot), 0644); err != nil {
			t.Fatalf("failed to write snapshot: %v", err)
		}

		if err := runCommand(t, runner, "library", "import", path); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if !strings.Contains(output.String(), "1 playlists and 1 albums") {
			t.Errorf("import output = %q", output.String())
		}

		output.Reset()
		if err := runCommand(t, runner, "library", "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), "Road Trip - 2 tracks, 1 matched") {
			t.Errorf("status output = %q", output.String())
		}
	})

	t.Run("import rejects malformed snapshots", func(t *testing.T) {
		runner, _ := testRunner(t)

		path := filepath.Join(t.TempDir(), "broken.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatalf("failed to write snapshot: %v", err)
		}

		err := runCommand(t, runner, "library", "import", path)
		if !errors.Is(err, shared.ErrMalformedInput) {
			t.Errorf("expected ErrMalformedInput, got %v", err)
		}
	})

	t.Run("export round trips the tri-state ids", func(t *testing.T) {
		runner, output := testRunner(t)

		path := filepath.Join(t.TempDir(), "library.json")
		if err := os.WriteFile(path, []byte(snapshot), 0644); err != nil {
			t.Fatalf("failed to write snapshot: %v", err)
		}
		if err := runCommand(t, runner, "library", "import", path); err != nil {
			t.Fatalf("import failed: %v", err)
		}

		output.Reset()
		if err := runCommand(t, runner, "library", "export", "--pretty=false"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		got := output.String()
		if !strings.Contains(got, `"remote_id":"t1"`) {
			t.Errorf("matched id lost in export: %s", got)
		}
		if strings.Contains(got, `"B-Side","artists":[{"name":"Someone"}],"remote_id"`) {
			t.Errorf("unattempted id should stay omitted: %s", got)
		}
	})

	t.Run("clear removes the snapshot", func(t *testing.T) {
		runner, _ := testRunner(t)

		path := filepath.Join(t.TempDir(), "library.json")
		if err := os.WriteFile(path, []byte(snapshot), 0644); err != nil {
			t.Fatalf("failed to write snapshot: %v", err)
		}
		if err := runCommand(t, runner, "library", "import", path); err != nil {
			t.Fatalf("import failed: %v", err)
		}
		if err := runCommand(t, runner, "library", "clear"); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		if err := runCommand(t, runner, "library", "status"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after clear, got %v", err)
		}
	})
}

func TestAuthStatus(t *testing.T) {
	t.Run("without a session", func(t *testing.T) {
		runner, output := testRunner(t)
		if err := runCommand(t, runner, "auth", "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), "Not authenticated") {
			t.Errorf("output = %q", output.String())
		}
	})

	t.Run("with a live session", func(t *testing.T) {
		runner, output := testRunner(t)
		db, _ := runner.ensureDB()
		session := models.Session{Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
		if err := repositories.NewSessionRepository(db).Save(session); err != nil {
			t.Fatalf("failed to seed session: %v", err)
		}

		if err := runCommand(t, runner, "auth", "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), "Session valid until") {
			t.Errorf("output = %q", output.String())
		}
	})

	t.Run("with an expired session", func(t *testing.T) {
		runner, output := testRunner(t)
		db, _ := runner.ensureDB()
		session := models.Session{Token: "tok", ExpiresAt: time.Now().Add(-time.Hour)}
		if err := repositories.NewSessionRepository(db).Save(session); err != nil {
			t.Fatalf("failed to seed session: %v", err)
		}

		if err := runCommand(t, runner, "auth", "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(output.String(), "expired") {
			t.Errorf("output = %q", output.String())
		}
	})
}

func TestRestoreSession(t *testing.T) {
	t.Run("missing session is unauthorized", func(t *testing.T) {
		runner, _ := testRunner(t)
		if err := runner.restoreSession(); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("expired session is discarded", func(t *testing.T) {
		runner, _ := testRunner(t)
		db, _ := runner.ensureDB()
		session := models.Session{Token: "tok", ExpiresAt: time.Now().Add(-time.Minute)}
		if err := repositories.NewSessionRepository(db).Save(session); err != nil {
			t.Fatalf("failed to seed session: %v", err)
		}

		if err := runner.restoreSession(); !errors.Is(err, shared.ErrSessionExpired) {
			t.Errorf("expected ErrSessionExpired, got %v", err)
		}
		if _, err := repositories.NewSessionRepository(db).Load(); !errors.Is(err, shared.ErrNotFound) {
			t.Error("expired session should be cleared from the store")
		}
	})

	t.Run("live session logs the gateway in", func(t *testing.T) {
		runner, _ := testRunner(t)
		db, _ := runner.ensureDB()
		session := models.Session{Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
		if err := repositories.NewSessionRepository(db).Save(session); err != nil {
			t.Fatalf("failed to seed session: %v", err)
		}

		if err := runner.restoreSession(); err != nil {
			t.Fatalf("restore failed: %v", err)
		}
		if got, ok := runner.gateway.Session(); !ok || got.Token != "tok" {
			t.Errorf("gateway session = %+v, %v", got, ok)
		}
	})
}
