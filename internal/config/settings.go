package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/r29878448-pixel/Rk-shortner-sub000/internal/model"
)

const settingsEnvPrefix = "SITE_"

// LoadSettings builds the seed site settings: built-in defaults, then the
// optional YAML file at path, then SITE_* environment overrides.
func LoadSettings(path string) (model.Settings, error) {
	k := koanf.New(".")

	if err := loadSettingDefaults(k, model.DefaultSettings()); err != nil {
		return model.Settings{}, err
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return model.Settings{}, fmt.Errorf("load settings file: %w", err)
		}
	}

	if err := k.Load(env.Provider(settingsEnvPrefix, ".", settingsEnvKey), nil); err != nil {
		return model.Settings{}, fmt.Errorf("load settings env: %w", err)
	}

	var out model.Settings
	if err := k.Unmarshal("", &out); err != nil {
		return model.Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return out, nil
}

func loadSettingDefaults(k *koanf.Koanf, d model.Settings) error {
	defaults := map[string]any{
		"total_steps":    d.TotalSteps,
		"wait_seconds":   d.WaitSeconds,
		"cpm_rate":       d.CPMRate,
		"min_withdrawal": d.MinWithdrawal,
		"ads.top":        d.Ads.Top,
		"ads.bottom":     d.Ads.Bottom,
	}
	for plan, cfg := range d.Plans {
		defaults["plans."+string(plan)+".link_limit"] = cfg.LinkLimit
		defaults["plans."+string(plan)+".price"] = cfg.Price
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}
	return nil
}

var settingsEnvKeys = map[string]string{
	"SITE_TOTAL_STEPS":    "total_steps",
	"SITE_WAIT_SECONDS":   "wait_seconds",
	"SITE_CPM_RATE":       "cpm_rate",
	"SITE_MIN_WITHDRAWAL": "min_withdrawal",
	"SITE_AD_TOP":         "ads.top",
	"SITE_AD_BOTTOM":      "ads.bottom",
}

// settingsEnvKey maps SITE_* variables to koanf paths. Plan entries use
// SITE_PLAN_<PLAN>_LINK_LIMIT and SITE_PLAN_<PLAN>_PRICE. Unknown names are
// ignored.
func settingsEnvKey(name string) string {
	if key, ok := settingsEnvKeys[name]; ok {
		return key
	}

	rest, ok := strings.CutPrefix(name, settingsEnvPrefix+"PLAN_")
	if !ok {
		return ""
	}
	for _, plan := range model.Plans {
		field, ok := strings.CutPrefix(rest, string(plan)+"_")
		if !ok {
			continue
		}
		switch field {
		case "LINK_LIMIT":
			return "plans." + string(plan) + ".link_limit"
		case "PRICE":
			return "plans." + string(plan) + ".price"
		}
	}
	return ""
}
