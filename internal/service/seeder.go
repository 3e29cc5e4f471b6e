package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"dailyprompt/internal/models"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the YAML document loaded by the seeder
type Catalog struct {
	Prompts []CatalogPrompt `yaml:"prompts"`
	Groups  []CatalogGroup  `yaml:"groups"`
}

// CatalogPrompt is one prompt in the seed file
type CatalogPrompt struct {
	ID               string   `yaml:"id"`
	Question         string   `yaml:"question"`
	Description      string   `yaml:"description"`
	Category         string   `yaml:"category"`
	DynamicVariables []string `yaml:"dynamic_variables"`
	BirthdayType     string   `yaml:"birthday_type"`
	IceBreaker       bool     `yaml:"ice_breaker"`
	IsCustom         bool     `yaml:"is_custom"`
}

// CatalogGroup is a demo group with its members, memorials and category weights
type CatalogGroup struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Type        string             `yaml:"type"`
	Members     []CatalogMember    `yaml:"members"`
	Memorials   []CatalogMemorial  `yaml:"memorials"`
	Preferences map[string]float64 `yaml:"preferences"`
}

type CatalogMember struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Birthday string `yaml:"birthday"`
}

type CatalogMemorial struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// CatalogWriter is the set of upserts the seeder needs
type CatalogWriter interface {
	UpsertPrompt(ctx context.Context, p *models.Prompt) error
	UpsertGroup(ctx context.Context, g *models.Group) error
	UpsertMember(ctx context.Context, m *models.Member) error
	UpsertMemorial(ctx context.Context, m *models.Memorial) error
	UpsertCategoryPreference(ctx context.Context, p *models.CategoryPreference) error
}

// TxRunner runs fn atomically against a CatalogWriter
type TxRunner func(ctx context.Context, fn func(w CatalogWriter) error) error

// SeedStats counts what a seed run wrote
type SeedStats struct {
	Prompts     int
	Groups      int
	Members     int
	Memorials   int
	Preferences int
}

// CatalogSeeder loads prompts and demo groups from YAML into the store
type CatalogSeeder struct {
	runTx  TxRunner
	logger *zap.Logger
}

// NewCatalogSeeder creates a new catalog seeder
func NewCatalogSeeder(runTx TxRunner, logger *zap.Logger) *CatalogSeeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogSeeder{runTx: runTx, logger: logger}
}

// ParseCatalog decodes and validates a YAML catalog
func ParseCatalog(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks required fields, id uniqueness and enumerated values
func (c *Catalog) Validate() error {
	var problems []string
	seen := make(map[string]bool)
	for i, p := range c.Prompts {
		switch {
		case p.ID == "":
			problems = append(problems, fmt.Sprintf("prompt %d: id is required", i))
		case seen[p.ID]:
			problems = append(problems, fmt.Sprintf("prompt %s: duplicate id", p.ID))
		}
		seen[p.ID] = true
		if strings.TrimSpace(p.Question) == "" {
			problems = append(problems, fmt.Sprintf("prompt %s: question is required", p.ID))
		}
		if p.Category == "" {
			problems = append(problems, fmt.Sprintf("prompt %s: category is required", p.ID))
		}
		if p.BirthdayType != "" && p.BirthdayType != models.BirthdayYours && p.BirthdayType != models.BirthdayTheirs {
			problems = append(problems, fmt.Sprintf("prompt %s: unknown birthday_type %q", p.ID, p.BirthdayType))
		}
	}

	for i, g := range c.Groups {
		if g.ID == "" {
			problems = append(problems, fmt.Sprintf("group %d: id is required", i))
		}
		if g.Type != models.GroupFamily && g.Type != models.GroupFriends {
			problems = append(problems, fmt.Sprintf("group %s: type must be family or friends", g.ID))
		}
		for _, m := range g.Members {
			if m.ID == "" || m.Name == "" {
				problems = append(problems, fmt.Sprintf("group %s: members need an id and a name", g.ID))
			}
			if m.Birthday != "" {
				if _, err := ParseDate(m.Birthday); err != nil {
					problems = append(problems, fmt.Sprintf("group %s: member %s: %v", g.ID, m.ID, err))
				}
			}
		}
		for _, m := range g.Memorials {
			if m.ID == "" || m.Name == "" {
				problems = append(problems, fmt.Sprintf("group %s: memorials need an id and a name", g.ID))
			}
		}
		for category, w := range g.Preferences {
			if w < 0 {
				problems = append(problems, fmt.Sprintf("group %s: weight for %s must not be negative", g.ID, category))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
	}
	return nil
}

// SeedFile parses the YAML file at path and seeds it
func (s *CatalogSeeder) SeedFile(ctx context.Context, path string) (SeedStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return SeedStats{}, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	c, err := ParseCatalog(f)
	if err != nil {
		return SeedStats{}, err
	}
	return s.Seed(ctx, c)
}

// Seed upserts the whole catalog in one transaction
func (s *CatalogSeeder) Seed(ctx context.Context, c *Catalog) (SeedStats, error) {
	var stats SeedStats
	err := s.runTx(ctx, func(w CatalogWriter) error {
		stats = SeedStats{}
		for _, cp := range c.Prompts {
			p := &models.Prompt{
				ID:               cp.ID,
				Question:         cp.Question,
				Description:      cp.Description,
				Category:         cp.Category,
				DynamicVariables: cp.DynamicVariables,
				BirthdayType:     cp.BirthdayType,
				IceBreaker:       cp.IceBreaker,
				IsCustom:         cp.IsCustom || cp.Category == models.CategoryCustom,
			}
			p.DynamicVariables = p.Variables()
			if err := w.UpsertPrompt(ctx, p); err != nil {
				return err
			}
			stats.Prompts++
		}

		for _, cg := range c.Groups {
			if err := w.UpsertGroup(ctx, &models.Group{ID: cg.ID, Name: cg.Name, Type: cg.Type}); err != nil {
				return err
			}
			stats.Groups++
			for _, cm := range cg.Members {
				m := &models.Member{UserID: cm.ID, GroupID: cg.ID, Name: cm.Name, Birthday: cm.Birthday}
				if err := w.UpsertMember(ctx, m); err != nil {
					return err
				}
				stats.Members++
			}
			for _, cm := range cg.Memorials {
				if err := w.UpsertMemorial(ctx, &models.Memorial{ID: cm.ID, GroupID: cg.ID, Name: cm.Name}); err != nil {
					return err
				}
				stats.Memorials++
			}
			for category, weight := range cg.Preferences {
				pref := &models.CategoryPreference{GroupID: cg.ID, Category: category, Weight: weight}
				if err := w.UpsertCategoryPreference(ctx, pref); err != nil {
					return err
				}
				stats.Preferences++
			}
		}
		return nil
	})
	if err != nil {
		return SeedStats{}, fmt.Errorf("failed to seed catalog: %w", err)
	}

	s.logger.Info("seeded catalog",
		zap.Int("prompts", stats.Prompts),
		zap.Int("groups", stats.Groups),
		zap.Int("members", stats.Members),
		zap.Int("memorials", stats.Memorials),
		zap.Int("preferences", stats.Preferences),
	)
	return stats, nil
}
