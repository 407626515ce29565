package commands

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"github.com/qafax/qafax/verify"
)

const keepAutomaticMatch = "keep automatic match"

// isInteractive reports whether stdin is a terminal. Piped input means
// no prompts; the aligner keeps its automatic choice.
func isInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// interactiveResolver prompts the operator when page alignment
// confidence is low, offering the aligner's top suggestions.
func interactiveResolver() verify.Resolver {
	return func(candIndex int, suggested []int) (int, bool) {
		if len(suggested) == 0 {
			return 0, false
		}
		options := make([]string, 0, len(suggested)+1)
		for _, refIndex := range suggested {
			options = append(options, fmt.Sprintf("reference page %d", refIndex+1))
		}
		options = append(options, keepAutomaticMatch)

		choice, err := pterm.DefaultInteractiveSelect.
			WithOptions(options).
			Show(fmt.Sprintf("Low confidence match for candidate page %d", candIndex+1))
		if err != nil || choice == keepAutomaticMatch {
			return 0, false
		}
		for i, option := range options[:len(suggested)] {
			if option == choice {
				return suggested[i], true
			}
		}
		return 0, false
	}
}
