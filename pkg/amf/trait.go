package amf

// Trait is the immutable schema of an AMF3 typed object: its class name
// (possibly empty for anonymous objects), whether its body is
// externalizable, whether it carries dynamic members beyond its sealed
// list, and the ordered sealed member names themselves (spec §3).
type Trait struct {
	ClassName      string
	Externalizable bool
	Dynamic        bool
	Members        []string
}

// Equal reports whether two traits describe the same schema, per spec §8:
// "Trait records with identical (class_name, externalizable, dynamic,
// members)... are emitted only once."
func (t Trait) Equal(o Trait) bool {
	if t.ClassName != o.ClassName || t.Externalizable != o.Externalizable || t.Dynamic != o.Dynamic {
		return false
	}
	if len(t.Members) != len(o.Members) {
		return false
	}
	for i, m := range t.Members {
		if o.Members[i] != m {
			return false
		}
	}
	return true
}
