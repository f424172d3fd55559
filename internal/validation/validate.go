// Package validation provides centralized input validation logic.
// This includes container name validation, destination path checks, and
// configuration range enforcement.
//
// All caller inputs are validated before any transfer starts; values outside
// documented ranges are rejected, never clamped.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/datalift/objsync/errors"
	"github.com/datalift/objsync/synctypes"
)

// ValidateConfig validates a sync configuration after defaults are applied.
// Every violation is reported as a configuration error so the invocation
// fails before any transfer starts.
func ValidateConfig(cfg synctypes.Config) error {
	if cfg.DestinationContainer == "" {
		return errors.NewError("validateConfig", errors.ErrConfiguration).
			WithMessage("destination container is required")
	}
	if err := ValidateContainerName(cfg.DestinationContainer); err != nil {
		return err
	}

	if cfg.MaxConcurrent < 1 || cfg.MaxConcurrent > synctypes.MaxConcurrentLimit {
		return errors.NewError("validateConfig", errors.ErrConfiguration).
			WithMessage(fmt.Sprintf("max_concurrent must be in [1,%d], got %d",
				synctypes.MaxConcurrentLimit, cfg.MaxConcurrent))
	}
	if cfg.BatchSize < 1 || cfg.BatchSize > synctypes.BatchSizeLimit {
		return errors.NewError("validateConfig", errors.ErrConfiguration).
			WithMessage(fmt.Sprintf("batch_size must be in [1,%d], got %d",
				synctypes.BatchSizeLimit, cfg.BatchSize))
	}
	if cfg.RetryCount < 1 || cfg.RetryCount > synctypes.RetryCountLimit {
		return errors.NewError("validateConfig", errors.ErrConfiguration).
			WithMessage(fmt.Sprintf("retry_count must be in [1,%d], got %d",
				synctypes.RetryCountLimit, cfg.RetryCount))
	}
	if cfg.ChunkSizeBytes < 0 {
		return errors.NewError("validateConfig", errors.ErrConfiguration).
			WithMessage("chunk_size_bytes cannot be negative")
	}

	switch cfg.Mode {
	case synctypes.ModeAuto, synctypes.ModeDirect, synctypes.ModeTraditional:
	default:
		return errors.NewError("validateConfig", errors.ErrConfiguration).
			WithMessage(fmt.Sprintf("unknown mode %q", cfg.Mode))
	}

	if cfg.DestinationPrefix != "" && hasPathTraversal(cfg.DestinationPrefix) {
		return errors.NewError("validateConfig", errors.ErrConfiguration).
			WithMessage("destination prefix cannot contain path traversal sequences")
	}

	return nil
}

// ValidateTask validates a single transfer task against the engine's
// invariants: a parseable source locator with a recognized scheme and a
// destination path that stays inside the configured prefix.
func ValidateTask(task synctypes.Task) error {
	src, err := synctypes.ParseLocator(task.SourceLocator)
	if err != nil {
		return errors.NewError("validateTask", errors.ErrConfiguration).
			WithMessage(err.Error())
	}
	if src.Scheme != synctypes.SchemeS3 {
		return errors.NewError("validateTask", errors.ErrConfiguration).
			WithKey(task.SourceLocator).
			WithMessage(fmt.Sprintf("unsupported source scheme %q", src.Scheme))
	}
	if err := ValidateContainerName(src.Container); err != nil {
		return err
	}
	return ValidateDestinationPath(task.DestinationPath)
}

// ValidateTasks validates every task, reporting the first violation with
// its position in the input.
func ValidateTasks(tasks []synctypes.Task) error {
	for i, task := range tasks {
		if err := ValidateTask(task); err != nil {
			return errors.NewError("validateTasks", err).
				WithMessage(fmt.Sprintf("task %d invalid", i))
		}
	}
	return nil
}

// ValidateDestinationPath validates a destination-relative path.
// This prevents traversal outside the configured destination prefix.
func ValidateDestinationPath(path string) error {
	if path == "" {
		return errors.NewError("validateDestinationPath", errors.ErrConfiguration).
			WithMessage("destination path cannot be empty")
	}
	if hasPathTraversal(path) {
		return errors.NewError("validateDestinationPath", errors.ErrConfiguration).
			WithKey(path).
			WithMessage("destination path cannot contain path traversal sequences")
	}
	if len(path) > 1024 {
		return errors.NewError("validateDestinationPath", errors.ErrConfiguration).
			WithKey(path).
			WithMessage("destination path cannot exceed 1024 characters")
	}
	if hasControlCharacters(path) {
		return errors.NewError("validateDestinationPath", errors.ErrConfiguration).
			WithKey(path).
			WithMessage("destination path cannot contain control characters")
	}
	return nil
}

// ValidateContainerName validates that a container name is DNS-compliant
// according to S3 bucket naming rules.
func ValidateContainerName(container string) error {
	if err := validateContainerNameBasics(container); err != nil {
		return err
	}
	if err := validateContainerNameCharacters(container); err != nil {
		return err
	}
	return validateContainerNameStructure(container)
}

// validateContainerNameBasics validates basic container name requirements
func validateContainerNameBasics(container string) error {
	if container == "" {
		return errors.NewError("validateContainerName", errors.ErrConfiguration).
			WithMessage("container name cannot be empty")
	}

	// Container names must be between 3 and 63 characters long
	if len(container) < 3 || len(container) > 63 {
		return errors.NewError("validateContainerName", errors.ErrConfiguration).
			WithContainer(container).
			WithMessage("container name must be between 3 and 63 characters long")
	}

	return nil
}

// validateContainerNameCharacters validates allowed characters in container names
func validateContainerNameCharacters(container string) error {
	// Container names can consist only of lowercase letters, numbers, dots, and hyphens
	for _, char := range container {
		if !isValidContainerChar(char) {
			return errors.NewError("validateContainerName", errors.ErrConfiguration).
				WithContainer(container).
				WithMessage("container name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}

	return nil
}

// validateContainerNameStructure validates container name structural requirements
func validateContainerNameStructure(container string) error {
	// Container names must not start or end with a hyphen or dot
	first, last := container[0], container[len(container)-1]
	if first == '-' || first == '.' || last == '-' || last == '.' {
		return errors.NewError("validateContainerName", errors.ErrConfiguration).
			WithContainer(container).
			WithMessage("container name cannot start or end with a hyphen or dot")
	}

	// Container names cannot be formatted as an IP address
	if isIPAddress(container) {
		return errors.NewError("validateContainerName", errors.ErrConfiguration).
			WithContainer(container).
			WithMessage("container name cannot be formatted as an IP address")
	}

	// Container names cannot contain two adjacent periods or hyphens
	if hasAdjacentSpecialChars(container) {
		return errors.NewError("validateContainerName", errors.ErrConfiguration).
			WithContainer(container).
			WithMessage("container name cannot contain two adjacent periods or hyphens")
	}

	return nil
}

// isValidContainerChar checks if a character is valid in a container name
func isValidContainerChar(char rune) bool {
	return (char >= '0' && char <= '9') || (char >= 'a' && char <= 'z') || char == '.' || char == '-'
}

// hasAdjacentSpecialChars checks for adjacent special characters
func hasAdjacentSpecialChars(container string) bool {
	for i := 0; i < len(container)-1; i++ {
		if (container[i] == '.' && container[i+1] == '.') || (container[i] == '-' && container[i+1] == '-') {
			return true
		}
	}
	return false
}

// isIPAddress checks if a string is formatted as an IPv4 address
func isIPAddress(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}

	for _, part := range parts {
		if len(part) == 0 {
			return true
		}
		num := 0
		for _, char := range part {
			if char < '0' || char > '9' {
				return false
			}
			num = num*10 + int(char-'0')
		}
		if num > 255 {
			return false
		}
	}

	return true
}

// hasPathTraversal checks for path traversal attempts in destination paths
func hasPathTraversal(path string) bool {
	if strings.Contains(path, "..") {
		return true
	}

	cleaned := filepath.Clean(path)

	if strings.HasPrefix(cleaned, "..") {
		return true
	}

	// Absolute paths would escape the destination prefix
	if strings.HasPrefix(cleaned, "/") {
		return true
	}

	// Windows-style absolute paths
	if len(cleaned) >= 3 && cleaned[1] == ':' && (cleaned[2] == '\\' || cleaned[2] == '/') {
		return true
	}

	return false
}

// hasControlCharacters checks for control characters in the path
func hasControlCharacters(path string) bool {
	for _, char := range path {
		if unicode.IsControl(char) {
			return true
		}
	}
	return false
}
