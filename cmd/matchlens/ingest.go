package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newIngestCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:     "ingest CODE...",
		Short:   "Fetch and store the given competitions once",
		Example: "  matchlens ingest PL CL",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*cfgFile)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			var failed []string
			for _, code := range args {
				code = strings.ToUpper(strings.TrimSpace(code))
				id, stored, err := a.service.IngestCompetition(ctx, code)
				switch {
				case err != nil:
					failed = append(failed, code)
					fmt.Fprintf(out, "%s\tfailed\t%v\n", code, err)
				case stored:
					fmt.Fprintf(out, "%s\tstored\tid=%d\n", code, id)
				default:
					fmt.Fprintf(out, "%s\tskipped\tnot found or already stored\n", code)
				}
			}
			if len(failed) > 0 {
				return errors.New("ingest failed for " + strings.Join(failed, ", "))
			}
			return nil
		},
	}
}
