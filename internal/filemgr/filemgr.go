// Package filemgr declares the contract the plan executor's segments
// use to resolve index files on remote or local storage. No backing
// implementation lives in this module: object storage, parquet
// chunk files, and the remote/space handle types are all collaborators
// outside the core.
package filemgr

// SegmentKey identifies one field's data within one segment.
type SegmentKey struct {
	CollectionID int64
	PartitionID  int64
	SegmentID    int64
	FieldID      int64
}

// IndexMeta identifies one built index artifact for a field.
type IndexMeta struct {
	SegmentID int64
	FieldID   int64
	BuildID   int64
	Version   int64
}

// RemoteHandle is an opaque reference to a blob in remote storage,
// resolved by Manager and handed to an Index's Load/Serialize/Upload.
type RemoteHandle interface {
	URI() string
}

// SpaceHandle is an opaque reference to a local on-disk mmap-able
// region, present only when local caching is enabled.
type SpaceHandle interface {
	Path() string
}

// Manager resolves where one field's index files live, for both the
// segment's raw column data and a built index's serialized artifact.
type Manager interface {
	Resolve(key SegmentKey, meta IndexMeta) (remote RemoteHandle, space SpaceHandle, err error)
}
