package deb

import (
	"fmt"
	"strings"
)

// Architecture is the Debian name of a target architecture.
//
// Reference: https://www.debian.org/doc/debian-policy/ch-controlfields.html#s-f-architecture
type Architecture string

const (
	ArchAll        Architecture = "all"
	ArchAMD64      Architecture = "amd64"
	ArchARM64      Architecture = "arm64"
	ArchARMV4      Architecture = "armv4"
	ArchARMV6HF    Architecture = "armv6hf"
	ArchARMV7HF    Architecture = "armv7hf"
	ArchI486       Architecture = "i486"
	ArchLoongson2F Architecture = "loongson2f"
	ArchLoongson3  Architecture = "loongson3"
	ArchM68K       Architecture = "m68k"
	ArchPowerPC    Architecture = "powerpc"
	ArchPPC64      Architecture = "ppc64"
	ArchPPC64EL    Architecture = "ppc64el"
	ArchRISCV64    Architecture = "riscv64"
)

// architectures is the set of recognized Debian architecture names.
var architectures = map[Architecture]bool{
	ArchAll:        true,
	ArchAMD64:      true,
	ArchARM64:      true,
	ArchARMV4:      true,
	ArchARMV6HF:    true,
	ArchARMV7HF:    true,
	ArchI486:       true,
	ArchLoongson2F: true,
	ArchLoongson3:  true,
	ArchM68K:       true,
	ArchPowerPC:    true,
	ArchPPC64:      true,
	ArchPPC64EL:    true,
	ArchRISCV64:    true,
}

// archAliases maps alternate spellings (GNU triples, uname output, rpm-style
// noarch) to their Debian names.
var archAliases = map[string]Architecture{
	"x86_64":  ArchAMD64,
	"aarch64": ArchARM64,
	"ppc64le": ArchPPC64EL,
	"noarch":  ArchAll,
}

// ParseArchitecture resolves name to a recognized Architecture. Matching is
// case-insensitive and accepts the aliases in archAliases.
func ParseArchitecture(name string) (Architecture, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	if a, ok := archAliases[s]; ok {
		return a, nil
	}
	if architectures[Architecture(s)] {
		return Architecture(s), nil
	}
	return "", fmt.Errorf("unknown architecture %q", name)
}

// Valid reports whether a is a recognized Debian architecture name.
// Aliases are not valid here; they must go through ParseArchitecture first.
func (a Architecture) Valid() bool {
	return architectures[a]
}
