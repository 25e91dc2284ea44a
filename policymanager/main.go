// Command policymanager serves a generator profile for --profile-url.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	streamgen "github.com/ozonru/streamjoin-generator"
)

var (
	addr string
	file string
)

var rootCmd = &cobra.Command{
	Use:   "policymanager",
	Short: "Serve generator profile over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := streamgen.NewLogger("production")
		if err != nil {
			return err
		}
		defer log.Sync()

		http.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			http.ServeFile(w, r, file)
		})

		log.Info("serving profile", zap.String("addr", addr), zap.String("file", file))
		return http.ListenAndServe(addr, nil)
	},
}

func init() {
	rootCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	rootCmd.Flags().StringVar(&file, "file", "profile.yml", "profile to serve")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
