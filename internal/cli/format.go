package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/andywolf/ctxbudget/internal/budget"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	headerColor  = color.New(color.FgBlue, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
)

// printSection prints a section header
func printSection(title string) {
	fmt.Println()
	_, _ = headerColor.Printf("▸ %s\n", title)
}

// printSuccess prints a success message with a checkmark
func printSuccess(msg string) {
	_, _ = successColor.Printf("✓ %s\n", msg)
}

// printWarning prints a warning message with a warning symbol
func printWarning(msg string) {
	_, _ = warningColor.Printf("⚠ %s\n", msg)
}

// printError prints an error message to stderr
func printError(msg string) {
	_, _ = errorColor.Fprintf(os.Stderr, "✗ %s\n", msg)
}

// printDim prints de-emphasized detail lines
func printDim(msg string) {
	_, _ = dimColor.Printf("  %s\n", msg)
}

// pressureString renders a pressure level in its alert color.
func pressureString(p budget.Pressure) string {
	switch p {
	case budget.PressureCritical:
		return errorColor.Sprint(string(p))
	case budget.PressureWarning:
		return warningColor.Sprint(string(p))
	default:
		return successColor.Sprint(string(p))
	}
}
