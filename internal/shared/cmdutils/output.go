// Package cmdutils formats CLI output.
package cmdutils

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

const logo = "🍳"

var (
	boldGreen  = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow     = color.New(color.FgYellow).SprintFunc()
	red        = color.New(color.FgRed).SprintFunc()
	faint      = color.New(color.Faint).SprintFunc()
	checkMark  = boldGreen("✓")
	crossMark  = red("✗")
	promptText = boldGreen("You: ")
)

// Prompt is the REPL input prompt.
func Prompt() string { return promptText }

// PrintResponse prints one Chef reply under the Chef's name.
func PrintResponse(chefName, text string) {
	if text == "" {
		return
	}
	fmt.Printf("\n%s %s\n%s\n\n", logo, boldCyan(chefName), text)
}

// PrintRecipes lists recommended recipes by name and slug.
func PrintRecipes(recipes []schema.Recipe) {
	if len(recipes) == 0 {
		return
	}
	fmt.Println(boldGreen("Recommended:"))
	for _, r := range recipes {
		line := "  • " + r.Name()
		if tags := r.Tags(); len(tags) > 0 {
			line += " " + faint("["+strings.Join(tags, ", ")+"]")
		}
		fmt.Println(line, faint(r.Slug()))
	}
	fmt.Println()
}

// Mark returns a coloured check or cross.
func Mark(ok bool) string {
	if ok {
		return checkMark
	}
	return crossMark
}

func Success(msg string) { fmt.Println(checkMark, msg) }
func Warn(msg string)    { fmt.Println(yellow("!"), msg) }
func Fail(msg string)    { fmt.Println(crossMark, msg) }

// Faint dims secondary text.
func Faint(s string) string { return faint(s) }
