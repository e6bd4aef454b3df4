package sim

import (
	"fmt"
	"reflect"
)

// ReadOnlyDifferences compares two parameter sets of the same schema
// and returns one human-readable message per read-only field whose
// value differs, recursing into nested models with a dotted path. Equal
// sets produce no messages. The function is pure; callers decide
// whether entries are warnings or errors.
func ReadOnlyDifferences(old, new *ParameterSet) []string {
	if old == nil || new == nil {
		return nil
	}
	return readOnlyDiff(old, new, old.schema.name)
}

func readOnlyDiff(old, new *ParameterSet, prefix string) []string {
	var out []string
	for _, f := range old.schema.fields {
		path := prefix + "." + f.Name
		if f.Kind == KindModel {
			oldSub, ok1 := old.values[f.Name].(*ParameterSet)
			newSub, ok2 := new.values[f.Name].(*ParameterSet)
			if ok1 && ok2 {
				out = append(out, readOnlyDiff(oldSub, newSub, path)...)
			}
			continue
		}
		if !f.ReadOnly {
			continue
		}
		oldV := old.values[f.Name]
		newV := new.values[f.Name]
		if !reflect.DeepEqual(oldV, newV) {
			out = append(out, fmt.Sprintf("read-only field changed: %s (old: %v, new: %v)", path, oldV, newV))
		}
	}
	return out
}
