package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/loomworks/loom/internal/ui"
)

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit writes rendered output, or the JSON form when --json is set.
func emit(rendered string, v any) error {
	if jsonOutput {
		return outputJSON(v)
	}
	return ui.Display(rendered, ui.PagerOptions{NoPager: noPagerFlag})
}

func confirmed(prompt string, assumeYes bool) bool {
	if assumeYes {
		return true
	}
	fmt.Printf("%s [y/N] ", prompt)
	var answer string
	_, _ = fmt.Scanln(&answer)
	return answer == "y" || answer == "Y" || answer == "yes"
}
