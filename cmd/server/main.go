package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/kevinxiao27/quill/hub"
	"github.com/kevinxiao27/quill/store"
)

func main() {
	var (
		addr      string
		storePath string
	)

	root := &cobra.Command{
		Use:   "quill-server",
		Short: "Relay hub for quill documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			var snapshots store.SnapshotStore
			if storePath != "" {
				s, err := store.OpenBadger(storePath)
				if err != nil {
					return err
				}
				defer s.Close()
				snapshots = s
			}

			h := hub.New(snapshots)
			slog.Info("listening", "addr", addr, "store", storePath)
			return http.ListenAndServe(addr, h.Router())
		},
	}
	root.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	root.Flags().StringVar(&storePath, "store", "", "badger snapshot directory (empty disables persistence)")

	if err := root.Execute(); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}
