package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"wm-go/internal/app"
	"wm-go/internal/config"
	"wm-go/internal/model"
	"wm-go/internal/wm"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a WardrobeApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "CreateBackup").
func newApp(operation string) (*app.WardrobeApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewWardrobeApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// progressPrinter renders progress lines when stdout is a terminal, and is
// silent otherwise.
func progressPrinter() wm.ProgressFunc {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return nil
	}
	return func(p wm.Progress) {
		fmt.Printf("[%3d%%] %s\n", p.Percent, p.Message)
	}
}

// confirm asks the user a yes/no question on an interactive terminal.
// A non-interactive stdin always answers false.
func confirm(prompt string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %s", arg)
	}
	return id, nil
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}

var rootCmd = &cobra.Command{
	Use:   "wm",
	Short: "Personal wardrobe catalogue",
}

// config command

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Database:   %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Images:     %s\n", cfg.Images.Dir)
		fmt.Printf("Backups:    %s\n", cfg.Backup.Dir)
		return nil
	},
}

// item command

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage clothing items",
}

var (
	itemAddName     string
	itemAddCategory string
	itemAddImage    string
	itemAddRating   float64
	itemAddPrice    float64
	itemAddLink     string
	itemAddNotes    string
)

var itemAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a clothing item",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := model.ParseCategory(itemAddCategory)
		if err != nil {
			return err
		}

		a, err := newApp("AddItem")
		if err != nil {
			return err
		}
		defer a.Close()

		input := wm.AddItemInput{
			Name:     itemAddName,
			Category: category,
			Rating:   itemAddRating,
		}
		if cmd.Flags().Changed("price") {
			input.Price = &itemAddPrice
		}
		if itemAddLink != "" {
			input.PurchaseLink = &itemAddLink
		}
		if itemAddNotes != "" {
			input.Notes = &itemAddNotes
		}
		if itemAddImage != "" {
			f, err := os.Open(itemAddImage)
			if err != nil {
				return fmt.Errorf("opening image: %w", err)
			}
			defer f.Close()
			input.Image = f
		}

		item, err := a.Service().AddItem(input)
		if err != nil {
			return err
		}

		fmt.Printf("Added item %d: %s (%s)\n", item.ID, item.Name, item.Category)
		return nil
	},
}

var (
	itemListCategory string
	itemListSearch   string
	itemListByRating bool
)

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clothing items",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListItems")
		if err != nil {
			return err
		}
		defer a.Close()

		var filter wm.ItemFilter
		if itemListCategory != "" {
			category, err := model.ParseCategory(itemListCategory)
			if err != nil {
				return err
			}
			filter.Category = &category
		}
		filter.Search = itemListSearch
		if itemListByRating {
			filter.Sort = wm.SortByRating
		}

		items, err := a.Service().Items(filter)
		if err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("No clothing items.")
			return nil
		}
		for _, item := range items {
			line := fmt.Sprintf("%4d  %-10s %-25s %.1f★", item.ID, item.Category, item.Name, item.Rating)
			if item.Price != nil {
				line += fmt.Sprintf("  %.2f", *item.Price)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var itemShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a clothing item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("ShowItem")
		if err != nil {
			return err
		}
		defer a.Close()

		item, err := a.Service().Item(id)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("clothing item %d does not exist", id)
		}

		fmt.Printf("Name:     %s\n", item.Name)
		fmt.Printf("Category: %s\n", item.Category)
		fmt.Printf("Rating:   %.1f\n", item.Rating)
		if item.Price != nil {
			fmt.Printf("Price:    %.2f\n", *item.Price)
		}
		if item.PurchaseLink != nil {
			fmt.Printf("Link:     %s\n", *item.PurchaseLink)
		}
		if item.Notes != nil {
			fmt.Printf("Notes:    %s\n", *item.Notes)
		}
		if item.ImagePath != "" {
			fmt.Printf("Image:    %s\n", item.ImagePath)
		}
		fmt.Printf("Added:    %s\n", formatMillis(item.CreatedAt))
		if item.LastWorn != nil {
			fmt.Printf("Worn:     %s\n", formatMillis(*item.LastWorn))
		}
		return nil
	},
}

var itemRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a clothing item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("DeleteItem")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().DeleteItem(id); err != nil {
			return err
		}
		fmt.Printf("Deleted item %d\n", id)
		return nil
	},
}

var itemWornCmd = &cobra.Command{
	Use:   "worn <id>",
	Short: "Mark a clothing item as worn today",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("MarkItemWorn")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Service().MarkItemWorn(id)
	},
}

var itemRateCmd = &cobra.Command{
	Use:   "rate <id> <rating>",
	Short: "Rate a clothing item (0-5)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		rating, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid rating: %s", args[1])
		}

		a, err := newApp("RateItem")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Service().RateItem(id, rating)
	},
}

// outfit command

var outfitCmd = &cobra.Command{
	Use:   "outfit",
	Short: "Manage outfits",
}

var (
	outfitCreateName   string
	outfitCreateDesc   string
	outfitCreateRating float64
	outfitCreateItems  []int64
)

var outfitCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an outfit from existing items",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CreateOutfit")
		if err != nil {
			return err
		}
		defer a.Close()

		var desc *string
		if outfitCreateDesc != "" {
			desc = &outfitCreateDesc
		}

		outfit, err := a.Service().CreateOutfit(outfitCreateName, desc, outfitCreateRating, outfitCreateItems)
		if err != nil {
			return err
		}

		fmt.Printf("Created outfit %d: %s (%d items)\n", outfit.ID, outfit.Name, len(outfit.ClothingItems))
		return nil
	},
}

var outfitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List outfits",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListOutfits")
		if err != nil {
			return err
		}
		defer a.Close()

		outfits, err := a.Service().Outfits()
		if err != nil {
			return err
		}

		if len(outfits) == 0 {
			fmt.Println("No outfits.")
			return nil
		}
		for _, outfit := range outfits {
			fmt.Printf("%4d  %-25s %.1f★  %d items\n",
				outfit.ID, outfit.Name, outfit.Rating, len(outfit.ClothingItems))
		}
		return nil
	},
}

var outfitShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an outfit and its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("ShowOutfit")
		if err != nil {
			return err
		}
		defer a.Close()

		outfit, err := a.Service().Outfit(id)
		if err != nil {
			return err
		}
		if outfit == nil {
			return fmt.Errorf("outfit %d does not exist", id)
		}

		fmt.Printf("Name:   %s\n", outfit.Name)
		if outfit.Description != nil {
			fmt.Printf("About:  %s\n", *outfit.Description)
		}
		fmt.Printf("Rating: %.1f\n", outfit.Rating)
		fmt.Println("Items:")
		for _, item := range outfit.ClothingItems {
			fmt.Printf("  %4d  %-10s %s\n", item.ID, item.Category, item.Name)
		}
		return nil
	},
}

var outfitRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an outfit (items are kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("DeleteOutfit")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().DeleteOutfit(id); err != nil {
			return err
		}
		fmt.Printf("Deleted outfit %d\n", id)
		return nil
	},
}

var outfitWornCmd = &cobra.Command{
	Use:   "worn <id>",
	Short: "Mark an outfit as worn today",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("MarkOutfitWorn")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Service().MarkOutfitWorn(id)
	},
}

var outfitRateCmd = &cobra.Command{
	Use:   "rate <id> <rating>",
	Short: "Rate an outfit (0-5)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		rating, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid rating: %s", args[1])
		}

		a, err := newApp("RateOutfit")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Service().RateOutfit(id, rating)
	},
}

// backup command

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Back up the whole catalogue to an archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CreateBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		file, err := a.Service().CreateBackup(progressPrinter())
		if err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}

		fmt.Printf("Backup written to %s (%d items, %d outfits, %d bytes)\n",
			file.Path, file.ClothingItems, file.Outfits, file.Size)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListBackups")
		if err != nil {
			return err
		}
		defer a.Close()

		summaries, err := a.ListBackups()
		if err != nil {
			return err
		}

		if len(summaries) == 0 {
			fmt.Println("No backups.")
			return nil
		}
		for _, s := range summaries {
			if s.Info == nil {
				fmt.Printf("%-40s  (unreadable)\n", s.Entry.Name)
				continue
			}
			fmt.Printf("%-40s  %s  %d items, %d outfits, %d bytes\n",
				s.Entry.Name, formatMillis(s.Info.Timestamp),
				s.Info.ClothingItemCount, s.Info.OutfitCount, s.Info.Size)
		}
		return nil
	},
}

var backupInspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show what a backup contains",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("InspectBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.InspectBackup(args[0])
		if err != nil {
			return err
		}
		if info == nil {
			return fmt.Errorf("not a readable backup archive: %s", args[0])
		}

		fmt.Printf("File:     %s\n", info.Path)
		fmt.Printf("Created:  %s\n", formatMillis(info.Timestamp))
		fmt.Printf("Items:    %d\n", info.ClothingItemCount)
		fmt.Printf("Outfits:  %d\n", info.OutfitCount)
		fmt.Printf("Version:  %d\n", info.Version)
		fmt.Printf("Size:     %d bytes\n", info.Size)
		return nil
	},
}

var backupRmCmd = &cobra.Command{
	Use:   "rm <file>",
	Short: "Delete a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		ok, err := a.DeleteBackup(args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("could not delete backup: %s", args[0])
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

// restore command

var restoreYes bool

var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore the catalogue from a backup archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RestoreBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		if !restoreYes && !confirm("Restore adds every record from the archive to the catalogue. Continue?") {
			return fmt.Errorf("restore cancelled (use --yes to skip the prompt)")
		}

		result, err := a.RestoreBackup(args[0], progressPrinter())
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored %d items and %d outfits\n", result.ClothingItems, result.Outfits)
		if result.Quarantined > 0 {
			fmt.Printf("Skipped %d records that failed validation (see log)\n", result.Quarantined)
		}
		return nil
	},
}

// stats command

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalogue statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Service().Stats()
		if err != nil {
			return err
		}

		fmt.Printf("Items:          %d\n", stats.ItemCount)
		for _, category := range model.Categories() {
			if n := stats.ItemsPerCategory[category]; n > 0 {
				fmt.Printf("  %-12s  %d\n", category, n)
			}
		}
		fmt.Printf("Outfits:        %d\n", stats.OutfitCount)
		fmt.Printf("Average rating: %.1f\n", stats.AverageRating)
		fmt.Printf("Total value:    %.2f\n", stats.TotalValue)
		if len(stats.RecentlyWorn) > 0 {
			fmt.Println("Recently worn:")
			for _, item := range stats.RecentlyWorn {
				fmt.Printf("  %s (%s)\n", item.Name, formatMillis(*item.LastWorn))
			}
		}
		return nil
	},
}

// images command

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Manage stored photos",
}

var imagesCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove photos no item references",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CleanupImages")
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.Service().CleanupImages()
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d unused images\n", removed)
		return nil
	},
}

func init() {
	itemAddCmd.Flags().StringVar(&itemAddName, "name", "", "item name (required)")
	itemAddCmd.Flags().StringVar(&itemAddCategory, "category", "", "top, bottom, outerwear, shoes or accessory (required)")
	itemAddCmd.Flags().StringVar(&itemAddImage, "image", "", "path to a photo of the item")
	itemAddCmd.Flags().Float64Var(&itemAddRating, "rating", 0, "rating 0-5")
	itemAddCmd.Flags().Float64Var(&itemAddPrice, "price", 0, "purchase price")
	itemAddCmd.Flags().StringVar(&itemAddLink, "link", "", "purchase link")
	itemAddCmd.Flags().StringVar(&itemAddNotes, "notes", "", "free-form notes")
	itemAddCmd.MarkFlagRequired("name")
	itemAddCmd.MarkFlagRequired("category")

	itemListCmd.Flags().StringVar(&itemListCategory, "category", "", "only this category")
	itemListCmd.Flags().StringVar(&itemListSearch, "search", "", "match name or notes")
	itemListCmd.Flags().BoolVar(&itemListByRating, "by-rating", false, "sort by rating instead of recency")

	outfitCreateCmd.Flags().StringVar(&outfitCreateName, "name", "", "outfit name (required)")
	outfitCreateCmd.Flags().StringVar(&outfitCreateDesc, "desc", "", "description")
	outfitCreateCmd.Flags().Float64Var(&outfitCreateRating, "rating", 0, "rating 0-5")
	outfitCreateCmd.Flags().Int64SliceVar(&outfitCreateItems, "items", nil, "comma-separated item ids")
	outfitCreateCmd.MarkFlagRequired("name")

	restoreCmd.Flags().BoolVar(&restoreYes, "yes", false, "do not ask for confirmation")

	configCmd.AddCommand(configInitCmd, configListCmd)
	itemCmd.AddCommand(itemAddCmd, itemListCmd, itemShowCmd, itemRmCmd, itemWornCmd, itemRateCmd)
	outfitCmd.AddCommand(outfitCreateCmd, outfitListCmd, outfitShowCmd, outfitRmCmd, outfitWornCmd, outfitRateCmd)
	backupCmd.AddCommand(backupCreateCmd, backupListCmd, backupInspectCmd, backupRmCmd)
	imagesCmd.AddCommand(imagesCleanupCmd)
	rootCmd.AddCommand(configCmd, itemCmd, outfitCmd, backupCmd, restoreCmd, statsCmd, imagesCmd)
}
