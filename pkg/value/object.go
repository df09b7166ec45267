package value

// ObjType discriminates the kinds of heap Object. String is the only kind
// this core allocates.
type ObjType uint8

const (
	ObjString ObjType = iota
)

// Object is implemented by every heap-allocated value. A tagged union
// (instead of the teacher's struct-punning "first field is Obj" trick) is
// the idiomatic Go stand-in for the source language's inheritance-by-
// embedding: each concrete object type implements Type() and is type-
// switched on at its use sites.
type Object interface {
	Type() ObjType
}

// StringObject is an interned, immutable byte sequence plus its
// precomputed FNV-1a hash. Two StringObjects with equal Chars are always
// the same *StringObject once they have passed through the VM's intern
// table — see vm.VM.Intern.
type StringObject struct {
	Chars string
	Hash  uint32
}

func (*StringObject) Type() ObjType { return ObjString }

// fnvOffsetBasis and fnvPrime are the 32-bit FNV-1a constants.
const (
	fnvOffsetBasis uint32 = 2166136261
	fnvPrime       uint32 = 16777619
)

// HashString computes the 32-bit FNV-1a hash of s. The reference C source
// this core is ported from left hash_string without a return statement;
// the algorithm is unambiguous, so this returns the accumulated hash.
func HashString(s string) uint32 {
	hash := fnvOffsetBasis
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= fnvPrime
	}
	return hash
}

// NewStringObject builds a StringObject over chars with its hash
// precomputed. It does not intern — callers that need the interning
// invariant (every live String appears in the intern set exactly once)
// go through vm.VM.Intern instead.
func NewStringObject(chars string) *StringObject {
	return &StringObject{Chars: chars, Hash: HashString(chars)}
}
