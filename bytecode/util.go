package bytecode

func copyStrings(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

func copyAny(src []any) []any {
	if src == nil {
		return nil
	}
	dst := make([]any, len(src))
	copy(dst, src)
	return dst
}

func copyInstructions(src []Instruction) []Instruction {
	if src == nil {
		return nil
	}
	dst := make([]Instruction, len(src))
	for i, instr := range src {
		instr.Operands = copyInts(instr.Operands)
		dst[i] = instr
	}
	return dst
}

func copyInts(src []int) []int {
	if src == nil {
		return nil
	}
	dst := make([]int, len(src))
	copy(dst, src)
	return dst
}

func copyCaptures(src []Capture) []Capture {
	if src == nil {
		return nil
	}
	dst := make([]Capture, len(src))
	copy(dst, src)
	return dst
}

func copyEntries(src []ExceptionEntry) []ExceptionEntry {
	if src == nil {
		return nil
	}
	dst := make([]ExceptionEntry, len(src))
	for i, e := range src {
		e.Names = copyStrings(e.Names)
		dst[i] = e
	}
	return dst
}
