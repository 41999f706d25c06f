// Package config loads the declarative account shelf: account
// configs with their fee schedules, and KPI profiles. Files are YAML,
// validated structurally with go-playground tags and semantically
// with the domain Validate checks.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/opensource-finance/heron/internal/domain"
)

// document is one shelf file. A file may carry an account config, a
// KPI profile, or both.
type document struct {
	Account *domain.AccountConfig `yaml:"account"`
	Profile *domain.KPIProfile    `yaml:"kpi_profile"`
}

// Shelf is a loaded account catalogue with its KPI profiles. Accounts
// are ordered by priority, so comparison output is stable no matter
// how the files were named.
type Shelf struct {
	Accounts []*domain.AccountConfig
	Profiles []*domain.KPIProfile
}

// LoadAccountConfig reads a single account config file.
func LoadAccountConfig(path string) (*domain.AccountConfig, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	if doc.Account == nil {
		return nil, fmt.Errorf("%s: no account block", filepath.Base(path))
	}
	return doc.Account, nil
}

// LoadKPIProfile reads a single KPI profile file.
func LoadKPIProfile(path string) (*domain.KPIProfile, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	if doc.Profile == nil {
		return nil, fmt.Errorf("%s: no kpi_profile block", filepath.Base(path))
	}
	return doc.Profile, nil
}

// LoadDir loads every YAML file in dir into one shelf. Every account
// referencing a KPI profile must find it in the same directory.
func LoadDir(dir string) (*Shelf, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("no config files in %s", dir)
	}

	shelf := &Shelf{}
	accountIDs := make(map[string]bool)
	profileNames := make(map[string]bool)

	for _, name := range names {
		doc, err := loadDocument(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if doc.Account != nil {
			if accountIDs[doc.Account.ID] {
				return nil, fmt.Errorf("%s: duplicate account id %q", name, doc.Account.ID)
			}
			accountIDs[doc.Account.ID] = true
			shelf.Accounts = append(shelf.Accounts, doc.Account)
		}
		if doc.Profile != nil {
			if profileNames[doc.Profile.Name] {
				return nil, fmt.Errorf("%s: duplicate kpi profile %q", name, doc.Profile.Name)
			}
			profileNames[doc.Profile.Name] = true
			shelf.Profiles = append(shelf.Profiles, doc.Profile)
		}
	}

	for _, acct := range shelf.Accounts {
		if acct.KPIProfile != "" && !profileNames[acct.KPIProfile] {
			return nil, fmt.Errorf("account %s references unknown kpi profile %q", acct.ID, acct.KPIProfile)
		}
	}

	sort.SliceStable(shelf.Accounts, func(i, j int) bool {
		return shelf.Accounts[i].Priority < shelf.Accounts[j].Priority
	})
	return shelf, nil
}

func loadDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if doc.Account == nil && doc.Profile == nil {
		return nil, fmt.Errorf("%s: neither account nor kpi_profile block found", filepath.Base(path))
	}

	if doc.Account != nil {
		if err := validateAccount(doc.Account); err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	if doc.Profile != nil {
		if err := validateProfile(doc.Profile); err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return &doc, nil
}

func validateAccount(a *domain.AccountConfig) error {
	validate := validator.New()
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("account %s failed validation: %w", a.ID, err)
	}
	return a.Validate()
}

func validateProfile(p *domain.KPIProfile) error {
	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("kpi profile %s failed validation: %w", p.Name, err)
	}
	for i, k := range p.KPIs {
		if k.Formula == "" && k.ExcessUsage == nil {
			return fmt.Errorf("kpi profile %s: kpi %d (%s): needs a formula or an excess_usage block", p.Name, i, k.Name)
		}
	}
	return nil
}
