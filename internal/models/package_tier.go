// internal/models/package_tier.go
package models

import "strings"

// PackageTier is one of the four fixed service levels.
type PackageTier string

const (
	PackageBas    PackageTier = "bas"
	PackagePro    PackageTier = "pro"
	PackageElite  PackageTier = "elite"
	PackageEmpire PackageTier = "empire"
)

// PackageTiers lists every tier in catalog order.
var PackageTiers = []PackageTier{PackageBas, PackagePro, PackageElite, PackageEmpire}

func (p PackageTier) IsValid() bool {
	switch p {
	case PackageBas, PackagePro, PackageElite, PackageEmpire:
		return true
	}
	return false
}

// Label is the upper-case name shown in documents and emails.
func (p PackageTier) Label() string {
	return strings.ToUpper(string(p))
}

// ParsePackageTier normalises case and surrounding space.
func ParsePackageTier(s string) (PackageTier, bool) {
	p := PackageTier(strings.ToLower(strings.TrimSpace(s)))
	return p, p.IsValid()
}
