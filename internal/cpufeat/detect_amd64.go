//go:build amd64

package cpufeat

import "golang.org/x/sys/cpu"

func detect() ISA {
	if cpu.X86.HasAVX2 {
		return ISAAVX2
	}
	return ISANone
}
