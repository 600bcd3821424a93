package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/radutopala/threads/internal/auth"
	"github.com/radutopala/threads/internal/config"
	"github.com/radutopala/threads/internal/db"
)

func init() {
	cobra.EnablePrefixMatching = true
	version = resolveVersion(version)
}

// resolveVersion uses debug.ReadBuildInfo to replace "dev" with the actual
// module version when installed via `go install`.
var resolveVersion = func(v string) string {
	if v != "dev" {
		return v
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return v
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var osExit = os.Exit

func main() {
	if err := newRootCmd().Execute(); err != nil {
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "threads",
		Short: "Discussion threads service",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newPurgeCmd())
	root.AddCommand(newViewCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newVersionCmd())
	root.SetHelpTemplate(helpTemplate)
	return root
}

const helpTemplate = `threads - Discussion threads attached to subjects, served over HTTP

Usage:
  threads [command]

Available Commands:
  serve                    Start the API server and purge scheduler (alias: s)
  migrate                  Create or upgrade the database schema
  purge                    Hard-delete records past the retention period
  view                     Print a subject's thread fetched from the API
    --subject              Subject key (required)
    --api-url              Threads API base URL [default: http://localhost:8223]
    --token                Bearer token
  init                     Write an example config to ~/.threads/config.json
    --force                Overwrite existing config
  version                  Print version information (alias: v)

Use "threads [command] --help" for more information about a command.
`

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(stdout, "threads %s\n", version)
			if commit != "none" {
				fmt.Fprintf(stdout, "  commit: %s\n", commit)
			}
			if date != "unknown" {
				fmt.Fprintf(stdout, "  built:  %s\n", date)
			}
		},
	}
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an example config to ~/.threads/config.json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			force, _ := cmd.Flags().GetBool("force")
			return initConfig(force)
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite existing config")
	return cmd
}

func initConfig(force bool) error {
	home, err := userHomeDir()
	if err != nil {
		return fmt.Errorf("getting home directory: %w", err)
	}

	dir := filepath.Join(home, ".threads")
	configPath := filepath.Join(dir, "config.json")

	if _, err := osStat(configPath); err == nil && !force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", configPath)
	}

	if err := osMkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := osWriteFile(configPath, config.ExampleConfig, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintf(stdout, "Wrote %s\n", configPath)
	return nil
}

// --- Shared testable vars ---

var (
	stdout      io.Writer = os.Stdout
	userHomeDir           = os.UserHomeDir
	osStat                = os.Stat
	osMkdirAll            = os.MkdirAll
	osWriteFile           = os.WriteFile
)

var (
	configLoad     = config.Load
	newSQLiteStore = func(path string) (db.Store, error) {
		return db.NewSQLiteStore(path)
	}
)

// sessionResolver builds the bearer token table from the configured users.
func sessionResolver(cfg *config.Config) auth.StaticResolver {
	r := make(auth.StaticResolver, len(cfg.Users))
	for token, u := range cfg.Users {
		r[token] = auth.Session{
			UserID:      u.UserID,
			LanguageID:  u.LanguageID,
			Permissions: u.Permissions,
		}
	}
	return r
}
