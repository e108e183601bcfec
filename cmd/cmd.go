// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the local audio proxy and control API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local audio proxy, control API and /metrics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Address to bind (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to bind (overrides server.port)",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record control API downloads in the database",
			},
		},
		Action: r.Serve,
	}
}

// resolveCommand locates a playable stream for a track
func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Find a playable audio stream for a track id",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "id",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "quality",
				Aliases: []string{"q"},
				Usage:   "Quality tier: normal, high or very_high",
				Value:   "very_high",
			},
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "Ask a running 'vyra serve' to resolve and return its proxy URL",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Resolve,
	}
}

// searchCommand queries the catalog for track ids
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search YouTube Music and print track ids",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "query",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "suggest",
				Usage: "Print search suggestions for the query instead",
			},
			&cli.BoolFlag{
				Name:  "next",
				Usage: "Treat the query as a track id and print its radio queue",
			},
			&cli.BoolFlag{
				Name:  "browse",
				Usage: "Treat the query as a browse id (album or playlist) and print its tracks",
			},
			&cli.StringFlag{
				Name:  "params",
				Usage: "Raw search or browse params (filter token)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of ids to print",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the raw API response",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Search,
	}
}

// downloadCommand writes tracks to disk
func downloadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "download",
		Aliases:   []string{"dl"},
		Usage:     "Download one or more tracks to disk",
		ArgsUsage: "<id> [id...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "quality",
				Aliases: []string{"q"},
				Usage:   "Quality tier: normal, high or very_high",
				Value:   "very_high",
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Base directory (default: downloads.dir or ~/Music)",
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Title used in the file name (single track only)",
			},
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Artist used in the file name (single track only)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent downloads when several ids are given",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record the download in the database",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output results as JSON",
			},
		},
		Action: r.Download,
	}
}

// downloadsCommand inspects the download history
func downloadsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "downloads",
		Usage: "Download history",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List recorded downloads",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv or markdown",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
					&cli.StringFlag{
						Name:  "track",
						Usage: "Only downloads of this track id",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of rows",
					},
				},
				Action: r.DownloadsList,
			},
			{
				Name:  "delete",
				Usage: "Remove a download from history (the file is kept)",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Action: r.DownloadsDelete,
			},
		},
	}
}

// cacheCommand manages the audio cache of a running server
func cacheCommand(r *Runner) *cli.Command {
	trackArg := []cli.Argument{&cli.StringArg{Name: "id"}}

	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the audio cache of a running 'vyra serve'",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Resolve a track and load its full audio into the cache",
				Arguments: trackArg,
				Action:    r.CacheAdd,
			},
			{
				Name:      "status",
				Usage:     "Report whether a track is cached",
				Arguments: trackArg,
				Action:    r.CacheStatus,
			},
			{
				Name:   "clear",
				Usage:  "Drop every cached track",
				Action: r.CacheClear,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "path",
						Aliases: []string{"c"},
						Usage:   "Where to write the configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}
