package util

import (
	"encoding/json"

	"github.com/spaolacci/murmur3"
)

// StructuralHash hashes the JSON form of value. Struct fields and slices
// keep their order in encoding/json and map keys are sorted, so equal
// values hash equally.
func StructuralHash(value any) (uint64, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return 0, err
	}
	return murmur3.Sum64(data), nil
}
