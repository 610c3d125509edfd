package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subtitle-burner/internal/diagnostics"
	"subtitle-burner/internal/domain"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check external tools, the endpoint, and directories",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	_, settings, err := loadSettings()
	if err != nil {
		return err
	}

	report := diagnostics.NewChecker().Run(settings)

	rows := make([][]string, 0, len(report.Items))
	for _, item := range report.Items {
		status := "ok"
		if item.Status == domain.DiagnosticStatusFail {
			status = "FAIL"
		}
		detail := item.Message
		if item.Hint != "" && item.Status == domain.DiagnosticStatusFail {
			detail = fmt.Sprintf("%s (%s)", item.Message, item.Hint)
		}
		rows = append(rows, []string{item.Name, status, detail})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft}))

	if report.HasFailures {
		return fmt.Errorf("some checks failed")
	}
	return nil
}
