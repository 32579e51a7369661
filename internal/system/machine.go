// Package system provides machine metadata and the external collaborators
// (apt, snap, user prompting) the entitlement engine drives. The engine
// only sees the interfaces; the exec-backed defaults live here.
package system

import (
	"bufio"
	"bytes"
	"runtime"
	"strings"
)

// Machine describes the host the client is running on. All engine paths
// accept an injected *Machine so tests never touch the real system.
type Machine struct {
	Series        string // distribution series codename, e.g. "jammy"
	Architecture  string // dpkg-style architecture, e.g. "amd64"
	KernelVersion string
	CPUVendor     string // "intel", "amd", or "" when unknown
	Cloud         string // cloud ID when running on a known cloud, else ""
	IsContainer   bool
}

// DetectMachine gathers machine metadata from the running system.
func DetectMachine() *Machine {
	m := &Machine{
		Architecture: goArchToDpkg(runtime.GOARCH),
		IsContainer:  InContainer(),
	}

	if data, err := readFileFn("/etc/os-release"); err == nil {
		m.Series = parseOSRelease(data, "VERSION_CODENAME")
	}
	if data, err := readFileFn("/proc/sys/kernel/osrelease"); err == nil {
		m.KernelVersion = strings.TrimSpace(string(data))
	}
	if data, err := readFileFn("/proc/cpuinfo"); err == nil {
		m.CPUVendor = parseCPUVendor(data)
	}
	if data, err := readFileFn("/run/cloud-init/cloud-id"); err == nil {
		m.Cloud = strings.TrimSpace(string(data))
	}

	return m
}

func parseOSRelease(data []byte, key string) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		k, v, found := strings.Cut(line, "=")
		if !found || k != key {
			continue
		}
		return strings.Trim(v, `"`)
	}
	return ""
}

func parseCPUVendor(data []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "vendor_id") {
			continue
		}
		_, v, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		switch strings.TrimSpace(v) {
		case "GenuineIntel":
			return "intel"
		case "AuthenticAMD":
			return "amd"
		default:
			return ""
		}
	}
	return ""
}

func goArchToDpkg(goarch string) string {
	switch goarch {
	case "amd64":
		return "amd64"
	case "arm64":
		return "arm64"
	case "arm":
		return "armhf"
	case "386":
		return "i386"
	case "ppc64le":
		return "ppc64el"
	case "s390x":
		return "s390x"
	case "riscv64":
		return "riscv64"
	default:
		return goarch
	}
}
