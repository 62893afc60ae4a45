package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// GetExtractConfig returns the extraction AI configuration with the global
// AI values filled in where the operation does not override them.
func (c *Config) GetExtractConfig() OperationAIConfig {
	op := c.AI.Extract
	if op.Provider == "" {
		op.Provider = c.AI.Provider
	}
	if op.Model == "" {
		op.Model = c.AI.Model
	}
	if op.Timeout == nil {
		op.Timeout = &c.AI.Timeout
	}
	if op.APIKey == "" {
		op.APIKey = c.AI.APIKey
	}
	if op.MaxRetries == nil {
		op.MaxRetries = &c.AI.MaxRetries
	}
	if op.Temperature == nil {
		op.Temperature = &c.AI.Temperature
	}
	return op
}

// loadPromptFiles replaces inline prompts with the content of the
// configured prompt files.
func (c *Config) loadPromptFiles() error {
	system, err := readPromptFile(c.AI.Extract.SystemPromptFile)
	if err != nil {
		return err
	}
	if system != "" {
		c.AI.Extract.SystemPrompt = system
	}

	user, err := readPromptFile(c.AI.Extract.UserPromptFile)
	if err != nil {
		return err
	}
	if user != "" {
		if !strings.Contains(user, "%s") {
			return fmt.Errorf("user prompt file %s must contain a %%s placeholder for the resume text", c.AI.Extract.UserPromptFile)
		}
		c.AI.Extract.UserPrompt = user
	}
	return nil
}

func readPromptFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt file %s: %w", path, err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("prompt file %s is empty", path)
	}
	log.Printf("[CONFIG] Loaded prompt from file: %s", path)
	return content, nil
}
