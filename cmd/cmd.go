// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand initializes local configuration and storage.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config file and initialize the snapshot database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to write the configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles session lifecycle operations.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the remote service session",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with the remote service in the browser",
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Destroy the current session",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the current session state",
				Action: r.AuthStatus,
			},
		},
	}
}

// libraryCommand handles library snapshot operations.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Import, export, and inspect the local library snapshot",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import a JSON library snapshot",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Action: r.LibraryImport,
			},
			{
				Name:  "export",
				Usage: "Export the library snapshot as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (stdout when omitted)",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.LibraryExport,
			},
			{
				Name:   "status",
				Usage:  "Summarize the stored library snapshot",
				Action: r.LibraryStatus,
			},
			{
				Name:   "clear",
				Usage:  "Delete the stored library snapshot",
				Action: r.LibraryClear,
			},
		},
	}
}

// syncCommand handles reconciliation runs.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Reconcile the library against the remote service",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Match tracks and locate remote counterparts",
				Action: r.SyncRun,
			},
			{
				Name:   "push",
				Usage:  "Reconcile, then commit everything with pending work",
				Action: r.SyncPush,
			},
		},
	}
}

// tuiCommand launches the interactive terminal UI.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Interactive reconciliation UI",
		Action: r.TUI,
	}
}
