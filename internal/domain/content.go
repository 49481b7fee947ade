// Package domain contains the core domain models for the feedsync service.
package domain

import "time"

// Bookkeeping fields the pipeline merges into a content document after a
// successful push. They live inside the document so the bookkeeping write
// itself surfaces as a normal write event and is recognized as an echo.
const (
	SyncHashField = "backendSyncHash"
	SyncedAtField = "backendSyncedAt"
)

// SyncHashOf returns the last pushed fingerprint recorded on a raw
// document, or "" when the document has never been synced.
func SyncHashOf(raw map[string]any) string {
	return rawString(raw, SyncHashField)
}

// ContentRecord is a post-like document as stored. The raw document is kept
// alongside the decoded fields because legacy writers used many different
// shapes for the attachment reference.
type ContentRecord struct {
	ID        string
	Raw       map[string]any
	SyncHash  string
	SyncedAt  *time.Time
	CreatedAt time.Time
}

// Title returns the post title, or "" when absent.
func (c *ContentRecord) Title() string {
	return rawString(c.Raw, "title")
}

// Body returns the post body. Older app versions wrote "text", newer ones
// "body"; "text" wins when both are present.
func (c *ContentRecord) Body() string {
	if s := rawString(c.Raw, "text"); s != "" {
		return s
	}
	return rawString(c.Raw, "body")
}

// AuthorID returns the id of the authoring user, or "" when absent.
func (c *ContentRecord) AuthorID() string {
	return rawString(c.Raw, "authorId")
}

func rawString(raw map[string]any, key string) string {
	if raw == nil {
		return ""
	}
	s, _ := raw[key].(string)
	return s
}

// ContentWriteEvent carries the before/after snapshots of a content-record
// write as delivered by the event platform. A nil snapshot means the record
// did not exist on that side of the write.
type ContentWriteEvent struct {
	ID     string
	Before map[string]any
	After  map[string]any
}

// Deleted reports whether the write removed the record.
func (e *ContentWriteEvent) Deleted() bool {
	return e.After == nil
}

// AfterRecord wraps the after snapshot as a ContentRecord for field access.
func (e *ContentWriteEvent) AfterRecord() *ContentRecord {
	return &ContentRecord{ID: e.ID, Raw: e.After}
}
