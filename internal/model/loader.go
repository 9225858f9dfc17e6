package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadModelsFromDir читает все описания моделей (*.yml, *.yaml) из dir
// и кладёт их в Registry. Имя модели — имя файла без расширения.
func LoadModelsFromDir(dir string) error {
	var files []string
	for _, pat := range []string{"*.yml", "*.yaml"} {
		matched, err := filepath.Glob(filepath.Join(dir, pat))
		if err != nil {
			return err
		}
		files = append(files, matched...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no model files (*.yml) found in %s", dir)
	}

	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if _, dup := Registry[name]; dup {
			return fmt.Errorf("duplicate model %q (file %s)", name, path)
		}
		m, err := loadModelFile(path)
		if err != nil {
			return err
		}
		m.Name = name
		Registry[name] = m
	}
	return nil
}

// loadModelFile сначала разбирает файл в yaml.Node и прогоняет структурную
// валидацию (неизвестные ключи, типы), и только потом декодирует в Model.
func loadModelFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error in %s: %w", path, err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML in %s", path)
	}
	if err := validateYAMLNode(root.Content[0], "model"); err != nil {
		return nil, fmt.Errorf("validation error in %s: %w", path, err)
	}

	var m Model
	if err := root.Decode(&m); err != nil {
		return nil, fmt.Errorf("unmarshal error in %s: %w", path, err)
	}
	return &m, nil
}
