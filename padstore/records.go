package padstore

import (
	"strconv"
	"strings"

	"github.com/escapewindow/ep-moinmoin-export/changeset"
)

type padRecord struct {
	AText changeset.AText `json:"atext"`
	Pool  *changeset.Pool `json:"pool"`
	Head  int             `json:"head"`
}

type revRecord struct {
	Changeset string  `json:"changeset"`
	Meta      revMeta `json:"meta"`
}

type revMeta struct {
	Author    string           `json:"author"`
	Timestamp int64            `json:"timestamp"`
	AText     *changeset.AText `json:"atext,omitempty"`
}

func padKey(padID string) string {
	return "pad:" + padID
}

func revKey(padID string, rev int) string {
	return "pad:" + padID + ":revs:" + strconv.Itoa(rev)
}

// splitKey classifies a record key. Pad ids may contain ':', so only a
// trailing ":revs:<n>" or ":chat:<n>" marks a sub-record.
func splitKey(key string) (padID, kind string, ok bool) {
	rest, found := strings.CutPrefix(key, "pad:")
	if !found || rest == "" {
		return "", "", false
	}
	for _, sub := range []string{":revs:", ":chat:"} {
		i := strings.LastIndex(rest, sub)
		if i <= 0 {
			continue
		}
		if _, err := strconv.Atoi(rest[i+len(sub):]); err == nil {
			return rest[:i], strings.Trim(sub, ":"), true
		}
	}
	return rest, "pad", true
}
