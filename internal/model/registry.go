package model

import "fmt"

var Registry = map[string]*Model{}

// InitRegistry загружает модели, связывает ссылки и выполняет checks-проход.
// Любая ошибка конфигурации всплывает здесь, при старте, а не на первом запросе.
func InitRegistry(dir string) error {
	if err := LoadModelsFromDir(dir); err != nil {
		return fmt.Errorf("load error: %w", err)
	}
	if err := LinkModels(); err != nil {
		return fmt.Errorf("link error: %w", err)
	}
	if err := CheckRegistry(); err != nil {
		return fmt.Errorf("check error: %w", err)
	}
	return nil
}

// ResetRegistry очищает реестр (используется в тестах).
func ResetRegistry() {
	Registry = map[string]*Model{}
}
