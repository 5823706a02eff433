package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kayz/perplex/internal/config"
	"github.com/kayz/perplex/internal/output"
	"github.com/kayz/perplex/internal/persist"
)

var (
	auditLimit   int
	auditSession string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List turns recorded when audit.enabled is set",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.ResolvePath(cfg.Audit.SQLitePath)
		store, err := persist.NewAuditStore(path)
		if err != nil {
			return err
		}
		defer store.Close()

		var records []persist.AuditRecord
		if auditSession != "" {
			records, err = store.Session(cmd.Context(), auditSession)
		} else {
			records, err = store.Recent(cmd.Context(), auditLimit)
		}
		if err != nil {
			return fmt.Errorf("read audit log: %w", err)
		}
		if len(records) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No recorded turns in %s\n", path)
			return nil
		}

		t := output.NewTable(cmd.OutOrStdout(), []string{"Time", "Session", "#", "Sources", "Query"})
		for _, r := range records {
			t.AddRow(r.CreatedAt.Local().Format("2006-01-02 15:04"), shortID(r.SessionID),
				strconv.Itoa(r.TurnNo), strconv.Itoa(r.Sources), r.Query)
		}
		return t.Render()
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "Number of recent turns")
	auditCmd.Flags().StringVar(&auditSession, "session", "", "Show one session in order")
	rootCmd.AddCommand(auditCmd)
}
