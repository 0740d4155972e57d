package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mstrov/stripd/internal/credstore"
	"github.com/mstrov/stripd/internal/logging"
)

// CreateCredsCmd creates the creds command for inspecting and clearing the
// on-disk credential record.
func CreateCredsCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Inspect or clear stored network credentials",
	}
	cmd.PersistentFlags().StringVar(&path, "file", "/var/lib/stripd/credentials.bin", "Credential record path")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the stored SSID",
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})
			store := credstore.New(path, logging.GetLogger("credstore"))

			creds, ok := store.Load()
			if !ok {
				fmt.Println("no valid credentials stored")
				return
			}
			// The password is deliberately not printed.
			fmt.Printf("ssid: %s\n", creds.SSID)
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear stored credentials (next boot enters hotspot mode)",
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})
			store := credstore.New(path, logging.GetLogger("credstore"))

			if err := store.Clear(); err != nil {
				fmt.Fprintf(os.Stderr, "clear failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("credentials cleared")
		},
	}

	cmd.AddCommand(show, clearCmd)
	return cmd
}
