package storage

// Shard prefix lengths. Emails vastly outnumber mailboxes, so their
// metadata is sharded one level deeper; with hex-ish server ids this
// bounds fan-out to about 4096 directories. Mailbox metadata is not
// sharded at all since accounts rarely have more than a few dozen.
const (
	emailShardLen = 3
	blobShardLen  = 2
)

// shard returns the first n characters of id, or the whole id when it
// is shorter than n.
func shard(id string, n int) string {
	if len(id) < n {
		return id
	}
	return id[:n]
}

// MailboxPath returns the storage path for a mailbox metadata object.
func MailboxPath(id string) string {
	return "/mailboxes/" + id + ".json"
}

// EmailPath returns the storage path for an email metadata object.
func EmailPath(id string) string {
	return "/emails/" + shard(id, emailShardLen) + "/" + id + ".json"
}

// BlobPath returns the storage path for a raw message payload, sharded
// by the blob's own content identifier.
func BlobPath(blobID string) string {
	return "/blobs/" + shard(blobID, blobShardLen) + "/" + blobID
}

// CheckpointPath returns the storage path for a named sync checkpoint.
func CheckpointPath(name string) string {
	return "/progress/" + name + ".json"
}
