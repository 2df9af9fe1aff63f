package archive

import (
	"fmt"
	"path"
	"path/filepath"

	mapset "github.com/deckarep/golang-set/v2"
)

// nameResolver hands out entry names that are unique by basename within one
// archive. The basename is the identity discriminator of an archive member,
// so two members may never share one.
type nameResolver struct {
	seen  mapset.Set[string]
	index int
}

func newNameResolver() *nameResolver {
	return &nameResolver{seen: mapset.NewThreadUnsafeSet[string]()}
}

// reserve returns name, or name with its basename prefixed by the archive's
// running index when the basename is already taken.
func (n *nameResolver) reserve(name string) string {
	idx := n.index
	n.index++

	dir, base := path.Split(filepath.ToSlash(name))
	if base == "" {
		base = "unnamed"
	}
	candidate := base
	for n.seen.Contains(candidate) {
		candidate = fmt.Sprintf("%d-%s", idx, base)
		if !n.seen.Contains(candidate) {
			break
		}
		// The prefixed name was itself a member name; take the next index.
		idx = n.index
		n.index++
	}
	n.seen.Add(candidate)
	return dir + candidate
}
