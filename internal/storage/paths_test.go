package storage

import "testing"

func TestMailboxPath(t *testing.T) {
	got := MailboxPath("M123abc")
	want := "/mailboxes/M123abc.json"

	if got != want {
		t.Errorf("MailboxPath() = %q, want %q", got, want)
	}
}

func TestEmailPath_Sharded(t *testing.T) {
	got := EmailPath("Mabc123def")
	want := "/emails/Mab/Mabc123def.json"

	if got != want {
		t.Errorf("EmailPath() = %q, want %q", got, want)
	}
}

func TestBlobPath_Sharded(t *testing.T) {
	got := BlobPath("Gdeadbeef")
	want := "/blobs/Gd/Gdeadbeef"

	if got != want {
		t.Errorf("BlobPath() = %q, want %q", got, want)
	}
}

func TestCheckpointPath(t *testing.T) {
	got := CheckpointPath("email")
	want := "/progress/email.json"

	if got != want {
		t.Errorf("CheckpointPath() = %q, want %q", got, want)
	}
}

func TestEmailPath_Deterministic(t *testing.T) {
	first := EmailPath("Mabc123")
	second := EmailPath("Mabc123")

	if first != second {
		t.Errorf("EmailPath() not deterministic: %q != %q", first, second)
	}
}

func TestEmailPath_PrefixCollision(t *testing.T) {
	// Same 3-char prefix must land in the same shard directory but
	// distinct object paths.
	a := EmailPath("Mab1111")
	b := EmailPath("Mab2222")

	if a == b {
		t.Errorf("distinct ids produced the same path %q", a)
	}
	if a[:len("/emails/Mab/")] != b[:len("/emails/Mab/")] {
		t.Errorf("same-prefix ids landed in different shards: %q vs %q", a, b)
	}
}

func TestBlobPath_DistinctPrefixes(t *testing.T) {
	a := BlobPath("Ga111")
	b := BlobPath("Gb111")

	if a[:len("/blobs/Ga/")] == b[:len("/blobs/Gb/")] {
		t.Errorf("distinct prefixes mapped to the same shard: %q vs %q", a, b)
	}
}

func TestShard_IDShorterThanPrefix(t *testing.T) {
	// Identifiers shorter than the shard length use the whole id
	// rather than panicking.
	got := EmailPath("ab")
	want := "/emails/ab/ab.json"

	if got != want {
		t.Errorf("EmailPath() = %q, want %q", got, want)
	}

	got = BlobPath("x")
	want = "/blobs/x/x"

	if got != want {
		t.Errorf("BlobPath() = %q, want %q", got, want)
	}
}
