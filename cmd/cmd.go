// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

// setupCommand prepares local state
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration, database and session",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create the session database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:  "import-cookies",
				Usage: "Import session cookies from a browser cURL command",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command copied from the browser",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "File containing the cURL command",
					},
				},
				Action: r.SetupImportCookies,
			},
		},
	}
}

// authCommand handles account and session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in, sign out and manage the account",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Sources: cli.EnvVars("STUDYFLOW_PASSWORD")},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and clear the local session",
				Action: r.AuthLogout,
			},
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "username", Usage: "Username", Required: true},
					&cli.StringFlag{Name: "password", Usage: "Password (min 8 characters)", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Full name"},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "me",
				Usage:  "Show the signed-in user",
				Flags:  jsonFlags(),
				Action: r.AuthMe,
			},
			{
				Name:   "status",
				Usage:  "Show the local session state",
				Action: r.AuthStatus,
			},
			{
				Name:  "update",
				Usage: "Update the profile",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Usage: "New username"},
					&cli.StringFlag{Name: "name", Usage: "New full name"},
					&cli.StringFlag{Name: "bio", Usage: "New bio"},
					&cli.StringFlag{Name: "avatar", Usage: "New avatar URL"},
				},
				Action: r.AuthUpdate,
			},
			{
				Name:  "reset-request",
				Usage: "Email a password reset code",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Account email", Required: true},
				},
				Action: r.AuthResetRequest,
			},
			{
				Name:  "reset-verify",
				Usage: "Check a password reset code",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "code", Usage: "Reset code", Required: true},
				},
				Action: r.AuthResetVerify,
			},
			{
				Name:  "reset",
				Usage: "Set a new password with a reset code",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "code", Usage: "Reset code", Required: true},
					&cli.StringFlag{Name: "password", Usage: "New password", Required: true},
				},
				Action: r.AuthReset,
			},
			{
				Name:  "change-password",
				Usage: "Change the password of the signed-in user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "current", Usage: "Current password", Required: true},
					&cli.StringFlag{Name: "new", Usage: "New password", Required: true},
				},
				Action: r.AuthChangePassword,
			},
		},
	}
}

func idArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "id"}}
}

func pageFlags() []cli.Flag {
	return append(jsonFlags(), &cli.IntFlag{
		Name:  "pages",
		Usage: "Number of pages to load",
		Value: 1,
	})
}

// feedCommand reads and exports feeds
func feedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Browse paginated feeds",
		Commands: []*cli.Command{
			{
				Name:   "home",
				Usage:  "Posts from joined communities",
				Flags:  pageFlags(),
				Action: r.FeedHome,
			},
			{
				Name:   "explore",
				Usage:  "Posts from every community",
				Flags:  pageFlags(),
				Action: r.FeedExplore,
			},
			{
				Name:  "community",
				Usage: "Posts from one community",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  pageFlags(),
				Action: r.FeedCommunity,
			},
			{
				Name:  "export",
				Usage: "Write a whole feed to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "home, explore or community", Value: "home"},
					&cli.StringFlag{Name: "id", Usage: "Community id for --source community"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json, csv, markdown or txt", Value: "json"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file path"},
					&cli.IntFlag{Name: "max-pages", Usage: "Stop after this many pages (0 for all)"},
					&cli.FloatFlag{Name: "rate", Usage: "Pages per second (0 for the configured rate)"},
				},
				Action: r.FeedExport,
			},
			{
				Name:  "exports",
				Usage: "List previous exports",
				Flags: append(jsonFlags(), &cli.IntFlag{
					Name:  "limit",
					Usage: "Maximum number of exports to list",
					Value: 20,
				}),
				Action: r.FeedExports,
			},
		},
	}
}

// postsCommand manages posts and likes
func postsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "posts",
		Usage: "Create, edit and like posts",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Publish a post in a community",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "content"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "community", Aliases: []string{"c"}, Usage: "Community id", Required: true},
					&cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Post tag"},
				},
				Action: r.PostsCreate,
			},
			{
				Name:  "edit",
				Usage: "Replace a post's content",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "content"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tag", Aliases: []string{"t"}, Usage: "New tag"},
				},
				Action: r.PostsEdit,
			},
			{
				Name:      "delete",
				Usage:     "Delete a post",
				Arguments: idArg(),
				Action:    r.PostsDelete,
			},
			{
				Name:      "like",
				Usage:     "Like a post",
				Arguments: idArg(),
				Action:    r.PostsLike,
			},
			{
				Name:      "unlike",
				Usage:     "Remove a like",
				Arguments: idArg(),
				Action:    r.PostsUnlike,
			},
		},
	}
}

// commentsCommand reads and writes comments
func commentsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "comments",
		Usage: "Comment threads on posts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List comments on a post",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "post-id"},
				},
				Flags:  jsonFlags(),
				Action: r.CommentsList,
			},
			{
				Name:  "create",
				Usage: "Comment on a post",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "post-id"},
					&cli.StringArg{Name: "content"},
				},
				Action: r.CommentsCreate,
			},
		},
	}
}

// communitiesCommand manages community membership
func communitiesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "communities",
		Aliases: []string{"c"},
		Usage:   "Browse and join communities",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List communities",
				Flags:  jsonFlags(),
				Action: r.CommunitiesList,
			},
			{
				Name:      "get",
				Usage:     "Show one community",
				Arguments: idArg(),
				Flags:     jsonFlags(),
				Action:    r.CommunitiesGet,
			},
			{
				Name:  "create",
				Usage: "Create a community",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Community name", Required: true},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Description"},
					&cli.StringFlag{Name: "tags", Usage: "Comma separated tags"},
				},
				Action: r.CommunitiesCreate,
			},
			{
				Name:      "join",
				Usage:     "Join a community",
				Arguments: idArg(),
				Action:    r.CommunitiesJoin,
			},
			{
				Name:      "leave",
				Usage:     "Leave a community",
				Arguments: idArg(),
				Action:    r.CommunitiesLeave,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the StudyFlow API with the stored session",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET a path, prints the response",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "POST a JSON body to a path",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// tuiCommand launches the interactive feed browser
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Browse feeds interactively",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "community",
				Usage: "Community shown in the third tab",
				Value: "react",
			},
		},
		Action: r.TUI,
	}
}

// serveCommand runs the local mock API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run an in-memory StudyFlow API for local development",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides server.host and server.port",
			},
		},
		Action: r.Serve,
	}
}
