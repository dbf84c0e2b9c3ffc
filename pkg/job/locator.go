package job

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// NewULIDLocator generates a locator of the form "<prefix><ULID>" (prefix
// may be empty, or end in "/" to nest generated locators under a
// directory) — supplementing, not replacing, caller-chosen locators: useful
// for fan-out stages whose individual invocations have no natural
// caller-given name (spec §4.9's "sample" stage is the motivating case).
// ULIDs are lexically sortable by generation time, unlike a plain UUID,
// which keeps directory listings of a fan-out stage in creation order.
func NewULIDLocator(prefix string) (string, error) {
	id, err := ulid.New(ulid.Now(), rand.Reader)
	if err != nil {
		return "", err
	}
	return prefix + id.String(), nil
}
