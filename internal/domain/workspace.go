package domain

// Workspace is the remote account's top-level grouping of projects and
// entries. The client operates against exactly one configured
// workspace at a time.
type Workspace struct {
	ID   int64
	Name string
}

// Tag is a workspace-scoped label attachable to time entries.
type Tag struct {
	ID          int64
	WorkspaceID int64
	Name        string
}
