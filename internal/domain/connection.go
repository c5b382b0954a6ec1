package domain

// NotionConnection is the per-profile OAuth credential record for the
// reporting integration. It is replaced wholesale on every change.
type NotionConnection struct {
	AccessToken   string `json:"accessToken"`
	RefreshToken  string `json:"refreshToken,omitempty"`
	WorkspaceID   string `json:"workspaceId,omitempty"`
	WorkspaceName string `json:"workspaceName,omitempty"`
	WorkspaceIcon string `json:"workspaceIcon,omitempty"`
	BotID         string `json:"botId,omitempty"`
	DatabaseID    string `json:"databaseId,omitempty"`
}

// CanWrite reports whether the connection holds an access token.
func (c *NotionConnection) CanWrite() bool {
	return c != nil && c.AccessToken != ""
}

// Configured reports whether reports can be written: token and target database present.
func (c *NotionConnection) Configured() bool {
	return c.CanWrite() && c.DatabaseID != ""
}

// Redacted returns a copy safe to hand to clients: tokens are replaced by presence flags.
func (c *NotionConnection) Redacted() ConnectionStatus {
	if c == nil {
		return ConnectionStatus{}
	}
	return ConnectionStatus{
		Connected:       c.AccessToken != "",
		HasRefreshToken: c.RefreshToken != "",
		WorkspaceID:     c.WorkspaceID,
		WorkspaceName:   c.WorkspaceName,
		WorkspaceIcon:   c.WorkspaceIcon,
		BotID:           c.BotID,
		DatabaseID:      c.DatabaseID,
		Configured:      c.Configured(),
	}
}

// ConnectionStatus is the client-facing view of a NotionConnection.
type ConnectionStatus struct {
	Connected       bool   `json:"connected"`
	HasRefreshToken bool   `json:"has_refresh_token"`
	Configured      bool   `json:"configured"`
	WorkspaceID     string `json:"workspace_id,omitempty"`
	WorkspaceName   string `json:"workspace_name,omitempty"`
	WorkspaceIcon   string `json:"workspace_icon,omitempty"`
	BotID           string `json:"bot_id,omitempty"`
	DatabaseID      string `json:"database_id,omitempty"`
}
