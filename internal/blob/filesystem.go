package blob

import (
	"trialviz/internal/infra/blob/fs"
)

// NewFilesystem returns a store rooted at the directory, creating it if needed.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}
