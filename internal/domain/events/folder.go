package events

// FolderPayload is the payload for folder_created and folder_deleted events.
type FolderPayload struct {
	Path string `json:"path"`
	Root string `json:"root"`
}

// WatchErrorPayload is the payload for watch_error events.
type WatchErrorPayload struct {
	Root  string `json:"root"`
	Error string `json:"error"`
}

// NewFolderCreatedEvent creates a folder_created event for a directory that
// appeared directly under root.
func NewFolderCreatedEvent(path, root string) *BaseEvent {
	return NewRootEvent(EventTypeFolderCreated, FolderPayload{
		Path: path,
		Root: root,
	}, root)
}

// NewFolderDeletedEvent creates a folder_deleted event. The removed entry is
// not known to have been a directory.
func NewFolderDeletedEvent(path, root string) *BaseEvent {
	return NewRootEvent(EventTypeFolderDeleted, FolderPayload{
		Path: path,
		Root: root,
	}, root)
}

// NewWatchErrorEvent creates a watch_error event for root.
func NewWatchErrorEvent(root string, err error) *BaseEvent {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return NewRootEvent(EventTypeWatchError, WatchErrorPayload{
		Root:  root,
		Error: msg,
	}, root)
}
