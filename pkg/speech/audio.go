package speech

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContentHandle identifies a rendered audio artifact: the id it is served
// under and its location on disk.
type ContentHandle struct {
	ID       string
	Location string
}

// NewContentID builds a random token with a unix-timestamp suffix, so ids
// are collision-resistant without a counter and sort roughly by time.
func NewContentID() string {
	token := strings.ReplaceAll(uuid.New().String(), "-", "")[:14]
	return fmt.Sprintf("%s-%d", token, time.Now().Unix())
}

// SaveAudio writes the full audio buffer to <root>/<id>.mp3 and returns the
// content handle. The caller supplies a trusted storage root.
func SaveAudio(data []byte, root string) (*ContentHandle, error) {
	id := NewContentID()
	location := filepath.Join(root, id+".mp3")

	if err := os.WriteFile(location, data, 0o644); err != nil {
		return nil, fmt.Errorf("write audio file: %w", err)
	}

	return &ContentHandle{ID: id, Location: location}, nil
}
