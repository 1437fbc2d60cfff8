package domain

import "time"

// PageEventType names a reconciliation event
type PageEventType string

const (
	EventRegistryRefreshed     PageEventType = "registry.refreshed"
	EventRegistryRefreshFailed PageEventType = "registry.refresh_failed"
	EventPageInstalled         PageEventType = "page.installed"
	EventPageConfigSaved       PageEventType = "page.config_saved"
	EventPageUninstalled       PageEventType = "page.uninstalled"
	EventCommandFailed         PageEventType = "command.failed"
)

// PageEvent is published after registry refreshes and page commands
type PageEvent struct {
	Type       PageEventType `json:"type"`
	PageID     string        `json:"page_id,omitempty"`
	CommandID  string        `json:"command_id,omitempty"`
	Command    CommandName   `json:"command,omitempty"`
	UserID     string        `json:"user_id,omitempty"`
	Error      string        `json:"error,omitempty"`
	ErrorKind  ErrorKind     `json:"error_kind,omitempty"`
	Records    int           `json:"records,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// CommandName identifies a mutating page command
type CommandName string

const (
	CommandInstall    CommandName = "install"
	CommandSaveConfig CommandName = "save_config"
)

// CommandRecord is one audited command outcome
type CommandRecord struct {
	ID         string        `json:"id,omitempty"`
	CommandID  string        `json:"command_id"`
	Command    CommandName   `json:"command"`
	PageID     string        `json:"page_id"`
	UserID     string        `json:"user_id"`
	Succeeded  bool          `json:"succeeded"`
	ErrorKind  ErrorKind     `json:"error_kind,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	OccurredAt time.Time     `json:"occurred_at"`
}
