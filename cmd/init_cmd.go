package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dilla-go/dilla/internal/config"
)

const starterCatalog = `version: 1
namespaces:
  - name: blog
    order: [Author, Tag, Post]
    models:
      - name: Author
        fields:
          - {name: id, kind: auto, auto_created: true}
          - {name: name, kind: text, max_length: 60}
          - {name: email, kind: email, unique: true}
          - {name: bio, kind: long_text, nullable: true}
      - name: Tag
        fields:
          - {name: id, kind: auto, auto_created: true}
          - {name: label, kind: text, max_length: 20, unique: true}
      - name: Post
        fields:
          - {name: id, kind: auto, auto_created: true}
          - {name: author, kind: foreign_key, references: Author}
          - {name: title, kind: text, max_length: 120}
          - {name: body, kind: long_text}
          - {name: published, kind: boolean}
          - {name: created_at, kind: datetime, auto_populated: true}
        relations:
          - {name: tags, target: Tag}
        policy:
          fields:
            title: {word_count: 6}
            body: {paragraph_count_range: [2, 5]}
            tags: {max: 4}
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config and starter catalog",
	Long:  `Walk through prompts to create a dilla configuration file at ~/.dilla/dilla.yaml and a starter catalog next to it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		fmt.Println("dilla Configuration Setup")
		fmt.Println("=========================")
		fmt.Println()

		cfg := config.Default()

		fmt.Println("Store")
		fmt.Println("-----")
		cfg.Store.Type = prompt(reader, "Store type (postgresql/mysql/sqlite/mongodb)", cfg.Store.Type)
		cfg.Store.URL = prompt(reader, "Connection URL", defaultURL(cfg.Store.Type))
		if cfg.Store.Type == "mongodb" {
			cfg.Store.Database = prompt(reader, "Database name", "")
		}
		if cfg.Store.Type != "postgresql" {
			cfg.Store.Schema = ""
		}
		cfg.Catalog = prompt(reader, "Catalog file", cfg.Catalog)
		fmt.Println()

		cfgPath := config.ExpandHome(config.DefaultPath)
		if cfgFile != "" {
			cfgPath = cfgFile
		}

		if err := cfg.Save(cfgPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Config written to %s\n", cfgPath)

		wrote, err := writeStarterCatalog(cfg.Catalog)
		if err != nil {
			return err
		}
		if wrote {
			fmt.Printf("Starter catalog written to %s\n", cfg.Catalog)
		}

		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  dilla discover            Build the catalog from your database")
		fmt.Println("  dilla validate            Check the catalog and its policies")
		fmt.Println("  dilla populate --dry-run  Generate into memory without writing")
		return nil
	},
}

// writeStarterCatalog writes an example catalog unless one already exists.
func writeStarterCatalog(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("checking catalog: %w", err)
	}
	if err := os.WriteFile(path, []byte(starterCatalog), 0o644); err != nil {
		return false, fmt.Errorf("writing catalog: %w", err)
	}
	return true, nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

func defaultURL(storeType string) string {
	switch storeType {
	case "mysql":
		return "${ENV:MYSQL_DSN}"
	case "sqlite":
		return "dilla.db"
	case "mongodb":
		return "mongodb://localhost:27017"
	default:
		return "${ENV:DATABASE_URL}"
	}
}
