package bytecode

// InsnList is an ordered sequence of instructions plus the label id
// allocator scoped to it. Ids are never reused; list-scoped monotonic
// allocation is sufficient since labels only need to be unique within
// their own list.
type InsnList struct {
	insns       []Insn
	nextLabelID uint32
}

// NewInsnList returns an empty list.
func NewInsnList() *InsnList {
	return &InsnList{}
}

// NewLabel allocates and returns the next unused label id. It does not,
// by itself, place a Label instruction anywhere in the list.
func (l *InsnList) NewLabel() uint32 {
	id := l.nextLabelID
	l.nextLabelID++
	return id
}

// Append adds insn to the end of the list.
func (l *InsnList) Append(insn Insn) {
	l.insns = append(l.insns, insn)
}

// Len returns the number of instructions currently in the list.
func (l *InsnList) Len() int { return len(l.insns) }

// At returns the instruction at position i.
func (l *InsnList) At(i int) Insn { return l.insns[i] }

// All returns the instructions in list order. The returned slice aliases
// the list's backing array and must not be mutated by callers that intend
// to keep using the list.
func (l *InsnList) All() []Insn { return l.insns }

// resolvedLabels returns, for every label id placed in the list, how many
// Label instructions carry it; the encoder uses the counts to validate
// branch targets (exactly one placement) before emission.
func (l *InsnList) resolvedLabels() map[uint32]int {
	seen := make(map[uint32]int)
	for _, insn := range l.insns {
		if lbl, ok := insn.(LabelInsn); ok {
			seen[lbl.ID]++
		}
	}
	return seen
}
