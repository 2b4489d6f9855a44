package watch

// Kind represents the type of change detected for a file.
type Kind int

const (
	// KindNew is reported when a file appears that was not in the previous snapshot
	KindNew Kind = iota
	// KindModified is reported when a known file's mtime moves strictly forward
	KindModified
	// KindDeleted is reported when a known file is gone from the latest snapshot
	KindDeleted
)

// String returns the string representation of the change kind
func (k Kind) String() string {
	switch k {
	case KindNew:
		return "new"
	case KindModified:
		return "modified"
	case KindDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Change represents one detected file change.
type Change struct {
	// Path is the file path relative to the watcher root, slash-separated
	Path string

	// Kind is the type of change (new, modified, deleted)
	Kind Kind
}

// SetChange is a Change tagged with the root of the watcher that produced it.
type SetChange struct {
	// Root is the absolute root path of the source watcher
	Root string

	Change
}
