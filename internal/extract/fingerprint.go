package extract

import (
	"os"

	"github.com/sells-group/popforecast/internal/cache"
	"github.com/sells-group/popforecast/internal/model"
)

type fileIdentity struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Sheet       string `json:"sheet"`
	HeaderRow   int    `json:"header_row"`
	FirstColumn int    `json:"first_column"`
	Composite   string `json:"composite,omitempty"`
	Size        int64  `json:"size"`
	ModUnixNano int64  `json:"mod"`
}

// Fingerprint hashes the extract metadata together with each file's size and
// modification time. It changes whenever a file is replaced or a descriptor
// changes. A missing file is a DataAccessError.
func Fingerprint(reg *Registry) (string, error) {
	ids := make([]fileIdentity, 0, reg.Len())
	for _, d := range reg.All() {
		info, err := os.Stat(d.Path)
		if err != nil {
			return "", model.NewDataAccessError(d.Path, err)
		}
		id := fileIdentity{
			Name:        d.Name,
			Path:        d.Path,
			Sheet:       d.Sheet,
			HeaderRow:   d.HeaderRow,
			FirstColumn: d.FirstColumn,
			Size:        info.Size(),
			ModUnixNano: info.ModTime().UnixNano(),
		}
		if d.Normalize != nil {
			id.Composite = d.Normalize.Region + "|" + d.Normalize.Suffix
		}
		ids = append(ids, id)
	}
	return cache.Key(ids)
}
