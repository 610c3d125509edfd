package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var refsCmd = &cobra.Command{
	Use:   "refs",
	Short: "List exported subtitled videos in the output directory",
	RunE:  runRefs,
}

func init() {
	rootCmd.AddCommand(refsCmd)
}

func runRefs(cmd *cobra.Command, args []string) error {
	_, settings, err := loadSettings()
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(settings.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "No exports yet.")
			return nil
		}
		return fmt.Errorf("read output directory: %w", err)
	}

	type export struct {
		name string
		size int64
		mod  string
	}
	exports := make([]export, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), ".subtitled.") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		exports = append(exports, export{
			name: entry.Name(),
			size: info.Size(),
			mod:  info.ModTime().Format("2006-01-02 15:04"),
		})
	}

	if len(exports) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No exports yet.")
		return nil
	}

	sort.Slice(exports, func(i, j int) bool { return exports[i].mod > exports[j].mod })

	rows := make([][]string, 0, len(exports))
	for _, e := range exports {
		rows = append(rows, []string{e.name, fmt.Sprintf("%d", e.size), e.mod, filepath.Join(settings.OutputDir, e.name)})
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"File", "Bytes", "Modified", "Path"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
	))
	return nil
}
