//go:build arm64

package cpufeat

import "golang.org/x/sys/cpu"

func detect() ISA {
	if cpu.ARM64.HasASIMD {
		return ISANEON
	}
	return ISANone
}
