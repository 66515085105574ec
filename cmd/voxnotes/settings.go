package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/voxnotes"
	"github.com/aretw0/voxnotes/pkg/adapters/fs"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change transcription settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the transcription settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		prefs := openPrefs()
		p, err := prefs.Read()
		if err != nil {
			fatal("Error reading preferences", err)
		}
		settings, err := prefs.TranscriptionSettings(cmd.Context())
		if err != nil {
			fatal("Error reading credentials", err)
		}

		source := "none"
		switch {
		case settings.Credentials == nil:
		case os.Getenv(fs.CredentialsEnv) != "":
			source = "$" + fs.CredentialsEnv
		case p.CredentialsFile != "":
			source = p.CredentialsFile
		default:
			source = "inline"
		}
		fmt.Printf("file:        %s\n", prefs.Path())
		fmt.Printf("language:    %s\n", settings.LanguageCode)
		fmt.Printf("credentials: %s\n", source)
	},
}

var settingsLanguageCmd = &cobra.Command{
	Use:   "language [code]",
	Short: "Set the recognition language, e.g. en-US",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := openPrefs().SetLanguage(args[0]); err != nil {
			fatal("Error setting language", err)
		}
		fmt.Printf("Language set: %s\n", args[0])
	},
}

var settingsCredentialsCmd = &cobra.Command{
	Use:   "credentials [file]",
	Short: "Use a service-account key file; without a file, forget it",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		if err := openPrefs().SetCredentialsFile(path); err != nil {
			fatal("Error setting credentials", err)
		}
		if path == "" {
			fmt.Println("Credentials file cleared")
			return
		}
		fmt.Printf("Credentials file set: %s\n", path)
	},
}

// openPrefs opens prefs.yaml of the data directory without starting a session.
func openPrefs() *fs.PrefsStore {
	dir, err := resolveDir()
	if err != nil {
		fatal("Error resolving data directory", err)
	}
	dir = voxnotes.ResolveDataPath(dir, voxnotes.IsDevRun())
	return fs.NewPrefsStore(filepath.Join(dir, fs.DefaultPrefsFile), nil)
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsLanguageCmd, settingsCredentialsCmd)
}
