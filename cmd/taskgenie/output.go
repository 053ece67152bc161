package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/ShayCichocki/taskgenie/internal/prompt"
	"github.com/ShayCichocki/taskgenie/pkg/models"
)

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printDrafts lists drafts with a short description preview.
func printDrafts(drafts []models.ChildDraft) {
	bold := color.New(color.Bold)
	for i, d := range drafts {
		fmt.Printf("%2d. %s\n", i+1, bold.Sprint(d.Title))
		if preview := prompt.DraftPreview(d.Description); preview != "" {
			fmt.Printf("    %s\n", color.HiBlackString(preview))
		}
	}
}

// readInput reads path, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
