package cli

import "fmt"

// ConfigError is a configuration problem surfaced to the user. Field is
// the dotted config path when the problem is field-specific, empty when
// the file itself could not be loaded.
type ConfigError struct {
	Field   string
	Message string
}

// NewConfigError builds a ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError wraps a failure inside a named subcommand so the top-level
// error output says which command failed.
type CommandError struct {
	Command string
	Err     error
}

// NewCommandError builds a CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
