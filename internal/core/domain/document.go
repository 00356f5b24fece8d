package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// DocumentRecord is the metadata kept for one processed document in the
// owner's partition of the metadata store.
type DocumentRecord struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	ChunkCount    int       `json:"chunk_count"`
	VectorsStored int       `json:"vectors_stored"`
	UploadedAt    time.Time `json:"uploaded_at,omitempty"`
	OwnerID       string    `json:"owner_id"`
}

// DeriveDocumentID normalizes a filename into the record key: every run of
// whitespace becomes a single hyphen and the result is lower-cased.
// Differently spaced or capitalized names collide on purpose.
func DeriveDocumentID(filename string) string {
	var b strings.Builder
	b.Grow(len(filename))
	inSpace := false
	for _, r := range filename {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// SortSnapshot returns a copy of records ordered by UploadedAt descending.
// Records without a timestamp sort as the oldest.
func SortSnapshot(records []DocumentRecord) []DocumentRecord {
	out := make([]DocumentRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return uploadedUnix(out[i]) > uploadedUnix(out[j])
	})
	return out
}

func uploadedUnix(r DocumentRecord) int64 {
	if r.UploadedAt.IsZero() {
		return 0
	}
	return r.UploadedAt.UnixNano()
}

// ProcessingReceipt is what the processing backend reports after a file
// was chunked and vectorized.
type ProcessingReceipt struct {
	Filename      string
	ChunkCount    int
	VectorsStored int
}

type QueryReply struct {
	Answer  string
	Sources []string
}

// SelectedFile is a local document picked for upload.
type SelectedFile struct {
	Name  string
	Path  string
	Size  int64
	Pages int
}

// AvailabilityLabel is the advisory document count shown next to the chat.
func AvailabilityLabel(count int) string {
	if count <= 0 {
		return "No Files Uploaded"
	}
	return strconv.Itoa(count) + " File(s) Ready"
}
