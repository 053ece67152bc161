package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/taskgenie/internal/knowledge"
	"github.com/ShayCichocki/taskgenie/pkg/models"
)

var (
	kbMeta         map[string]string
	kbWorkItemType string
	kbAreaPath     string
	kbBusinessUnit string
	kbSystem       string
	kbTop          int
	kbJSON         bool
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the knowledge base",
	Long: `The knowledge base holds process guidelines and domain documents used
when evaluating and breaking down work items.

Documents are text or markdown files. A YAML front matter block may set the
source and metadata:

  ---
  source: https://wiki.example.com/agile/user-stories
  metadata:
    workItemType: User Story
    areaPath: agile-process
  ---
  A user story describes...`,
}

var kbAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Add or replace documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appConfig, 0)
		if err != nil {
			return err
		}
		defer a.Close()
		for _, path := range args {
			id, err := a.kb.ImportFile(cmd.Context(), path, kbMeta)
			if err != nil {
				return err
			}
			printStatus("✓", fmt.Sprintf("%s (%s)", path, id), color.FgGreen)
		}
		return nil
	},
}

var kbImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import every document under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appConfig, 0)
		if err != nil {
			return err
		}
		defer a.Close()
		n, err := a.kb.ImportDir(cmd.Context(), args[0], kbMeta)
		if err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("Imported %d documents from %s", n, args[0]), color.FgGreen)
		return nil
	},
}

var kbWatchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Import a directory and keep the knowledge base in sync with it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appConfig, 0)
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()
		n, err := a.kb.ImportDir(ctx, args[0], kbMeta)
		if err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("Imported %d documents, watching %s", n, args[0]), color.FgGreen)

		err = a.kb.Watch(ctx, args[0], kbMeta, a.logger, func(e knowledge.WatchEvent) {
			switch {
			case e.Err != nil:
				printStatus("✗", fmt.Sprintf("%s: %v", e.Path, e.Err), color.FgRed)
			case e.Removed:
				printStatus("-", e.Path, color.FgYellow)
			default:
				printStatus("+", e.Path, color.FgGreen)
			}
		})
		if errors.Is(err, ctx.Err()) {
			return nil
		}
		return err
	},
}

var kbSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appConfig, 0)
		if err != nil {
			return err
		}
		defer a.Close()

		top := kbTop
		if top <= 0 {
			top = a.cfg.Knowledge.MaxDocuments
		}
		results, err := a.kb.Search(cmd.Context(), strings.Join(args, " "), searchFilter(), top)
		if err != nil {
			return err
		}
		if kbJSON {
			return printJSON(os.Stdout, results)
		}
		if len(results) == 0 {
			fmt.Println("No matching documents")
			return nil
		}
		for i, r := range results {
			fmt.Printf("%d. %s %s\n", i+1, color.New(color.Bold).Sprint(r.SourceURI), color.HiBlackString("(%.3f)", r.Score))
			fmt.Printf("   %s\n", models.Truncate(strings.Join(strings.Fields(r.Content), " "), 200))
		}
		return nil
	},
}

var kbDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete documents by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appConfig, 0)
		if err != nil {
			return err
		}
		defer a.Close()
		for _, id := range args {
			if err := a.kb.Delete(cmd.Context(), id); err != nil {
				return err
			}
			printStatus("✓", "Deleted "+id, color.FgGreen)
		}
		return nil
	},
}

var kbShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appConfig, 0)
		if err != nil {
			return err
		}
		defer a.Close()
		doc, err := a.kb.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if kbJSON {
			return printJSON(os.Stdout, doc)
		}
		fmt.Printf("id:      %s\n", doc.ID)
		fmt.Printf("source:  %s\n", doc.SourceURI)
		fmt.Printf("created: %s\n", doc.CreatedAt.Format(time.RFC3339))
		for k, v := range doc.Metadata {
			fmt.Printf("%s: %s\n", k, v)
		}
		fmt.Printf("\n%s\n", doc.Content)
		return nil
	},
}

var kbCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appConfig, 0)
		if err != nil {
			return err
		}
		defer a.Close()
		n, err := a.kb.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(n)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{kbAddCmd, kbImportCmd, kbWatchCmd} {
		c.Flags().StringToStringVar(&kbMeta, "meta", nil, "Default metadata, e.g. --meta workItemType=Epic,areaPath=agile-process")
	}
	kbSearchCmd.Flags().StringVar(&kbWorkItemType, "type", "", "Only documents for this work item type")
	kbSearchCmd.Flags().StringVar(&kbAreaPath, "area", "", "Only documents for this area path")
	kbSearchCmd.Flags().StringVar(&kbBusinessUnit, "business-unit", "", "Only documents for this business unit")
	kbSearchCmd.Flags().StringVar(&kbSystem, "system", "", "Only documents for this system")
	kbSearchCmd.Flags().IntVarP(&kbTop, "top", "k", 0, "Number of results (default knowledge.max_documents)")
	kbSearchCmd.Flags().BoolVar(&kbJSON, "json", false, "Print results as JSON")
	kbShowCmd.Flags().BoolVar(&kbJSON, "json", false, "Print the document as JSON")

	kbCmd.AddCommand(kbAddCmd, kbImportCmd, kbWatchCmd, kbSearchCmd, kbDeleteCmd, kbShowCmd, kbCountCmd)
}

// searchFilter combines the filter flags that were set. Nil means no filter.
func searchFilter() *knowledge.Filter {
	var conds []knowledge.Filter
	for key, val := range map[string]string{
		knowledge.KeyWorkItemType: kbWorkItemType,
		knowledge.KeyAreaPath:     kbAreaPath,
		knowledge.KeyBusinessUnit: kbBusinessUnit,
		knowledge.KeySystem:       kbSystem,
	} {
		if val != "" {
			conds = append(conds, knowledge.Eq(key, val))
		}
	}
	switch len(conds) {
	case 0:
		return nil
	case 1:
		return &conds[0]
	default:
		return &knowledge.Filter{AndAll: conds}
	}
}
