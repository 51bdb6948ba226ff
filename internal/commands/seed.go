package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/store"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document read by `bilancioctl seed`:
//
//	categories:
//	  - name: Spesa
//	    icon: "🛒"
//	rules:
//	  - pattern: esselunga
//	    category: Spesa
type SeedFile struct {
	Categories []SeedCategory `yaml:"categories"`
	Rules      []SeedRule     `yaml:"rules"`
}

type SeedCategory struct {
	Name  string `yaml:"name"`
	Icon  string `yaml:"icon"`
	Color string `yaml:"color"`
}

// SeedRule names its category; unknown names are created with default icon and color.
type SeedRule struct {
	Pattern  string `yaml:"pattern"`
	Category string `yaml:"category"`
}

type SeedResult struct {
	CategoriesCreated int
	RulesUpserted     int
}

type seedStore interface {
	store.CategoryStore
	store.RuleStore
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Create categories and merchant rules from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := ReadSeedFile(args[0])
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			res, _, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer res.Close()

			result, err := ApplySeed(cmd.Context(), res.Store, seed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d categories, upserted %d rules\n",
				result.CategoriesCreated, result.RulesUpserted)
			return nil
		},
	}
}

func ReadSeedFile(path string) (SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("reading seed file: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return SeedFile{}, fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	return seed, nil
}

// ApplySeed is idempotent: categories are matched by name (case-insensitive)
// and rules are upserted by pattern.
func ApplySeed(ctx context.Context, st seedStore, seed SeedFile) (SeedResult, error) {
	var result SeedResult

	existing, err := st.ListCategories(ctx)
	if err != nil {
		return result, fmt.Errorf("listing categories: %w", err)
	}
	byName := make(map[string]string, len(existing))
	for _, c := range existing {
		byName[strings.ToLower(c.Name)] = c.ID
	}

	ensure := func(c core.Category) (string, error) {
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if id, ok := byName[key]; ok {
			return id, nil
		}
		created, err := st.CreateCategory(ctx, c)
		if err != nil {
			return "", fmt.Errorf("creating category %q: %w", c.Name, err)
		}
		byName[key] = created.ID
		result.CategoriesCreated++
		return created.ID, nil
	}

	for _, c := range seed.Categories {
		if _, err := ensure(core.Category{Name: c.Name, Icon: c.Icon, Color: c.Color}); err != nil {
			return result, err
		}
	}

	for i, r := range seed.Rules {
		if strings.TrimSpace(r.Category) == "" {
			return result, fmt.Errorf("rule %d (%q): missing category", i, r.Pattern)
		}
		id, err := ensure(core.Category{Name: r.Category})
		if err != nil {
			return result, err
		}
		rule := core.MerchantRule{Pattern: strings.TrimSpace(r.Pattern), CategoryID: id}
		if err := rule.Validate(); err != nil {
			return result, fmt.Errorf("rule %d: %w", i, err)
		}
		if _, err := st.UpsertRule(ctx, rule); err != nil {
			return result, fmt.Errorf("saving rule %q: %w", r.Pattern, err)
		}
		result.RulesUpserted++
	}

	return result, nil
}
