package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ppe-vision/internal/ledger"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change display preferences",
}

var prefsDarkModeCmd = &cobra.Command{
	Use:       "dark-mode [on|off]",
	Short:     "Show or set the dark mode preference",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st := openStore(ctx)
		defer st.Close() //nolint:errcheck

		p := ledger.OpenPreferences(ctx, st, cfg.Retry.Policy())
		if len(args) == 0 {
			fmt.Println(onOff(p.DarkMode()))
			return nil
		}

		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		if err := p.SetDarkMode(ctx, on); err != nil {
			fmt.Fprintf(os.Stderr, "warning: preference not persisted: %v\n", err)
		}
		fmt.Println(onOff(p.DarkMode()))
		return nil
	},
}

func init() {
	prefsCmd.AddCommand(prefsDarkModeCmd)
	rootCmd.AddCommand(prefsCmd)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, eris.Errorf("prefs: expected on or off, got %q", s)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
