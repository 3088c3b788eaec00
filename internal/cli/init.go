package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize roster storage",
		Long: "Create the configuration directory and config.yaml if missing, then\n" +
			"attach and detach the configured backend so its schema exists.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore(a.logger)
			if err != nil {
				return err
			}
			if err := store.Detach(); err != nil {
				return sysError(fmt.Errorf("finalize storage: %w", err))
			}

			out := cmd.OutOrStdout()
			return a.render(out, map[string]string{
				"backend":  a.settings.Backend,
				"data_dir": a.dataDir,
			}, func(w io.Writer) {
				fmt.Fprintf(w, "roster initialized (%s backend, data dir %s)\n", a.settings.Backend, a.dataDir)
			})
		},
	}
}
