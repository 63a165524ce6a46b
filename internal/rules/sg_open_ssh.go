package rules

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/pankaj-dahiya-devops/secguardrails/internal/models"
)

const (
	sshPort         = 22
	allTrafficProto = "-1"
)

// EvaluateSSHIngress runs control 4.1 over the security groups of one stack.
//
// A permission covers SSH when its protocol is "-1" (all traffic, no ports) or
// when its explicit port range contains 22. A covering permission is compliant
// only when it has at least one source and every source is a CIDR inside one
// of the approved prefixes; prefix-list and security-group references are
// never approved. Each offending group is reported once as "region : group-id".
func EvaluateSSHIngress(groups []models.SecurityGroupSnapshot, approvedCIDRs []string) models.ControlResult {
	result := models.ControlResult{
		ControlID:   ControlSSHIngress,
		Description: sshIngressDescription,
		Scored:      true,
		Result:      true,
		Offenders:   []string{},
	}

	approved := parsePrefixes(approvedCIDRs)
	seen := make(map[string]bool)
	for _, sg := range groups {
		for _, perm := range sg.Permissions {
			if !coversPort(perm, sshPort) || restrictedTo(perm, approved) {
				continue
			}
			offender := fmt.Sprintf("%s : %s", sg.Region, sg.GroupID)
			if seen[offender] {
				continue // one offender entry per security group
			}
			seen[offender] = true
			result.Result = false
			result.Offenders = append(result.Offenders, offender)
		}
	}

	if !result.Result {
		result.FailReason = fmt.Sprintf(
			"Found Security Group with port 22 open to the wrong source IP range. Allowed IP is: %s",
			strings.Join(approvedCIDRs, ", "),
		)
	}
	return result
}

// coversPort reports whether perm lets traffic reach port.
func coversPort(perm models.IngressPermission, port int) bool {
	if perm.Protocol == allTrafficProto {
		return true
	}
	if perm.FromPort == nil || perm.ToPort == nil {
		return false
	}
	return *perm.FromPort <= port && port <= *perm.ToPort
}

// restrictedTo reports whether every source of perm lies inside an approved
// prefix. A permission with no sources at all is not restricted.
func restrictedTo(perm models.IngressPermission, approved []netip.Prefix) bool {
	if len(perm.PrefixListIDs) > 0 || len(perm.SourceGroupIDs) > 0 {
		return false
	}
	sources := append(append([]string{}, perm.CIDRs...), perm.IPv6CIDRs...)
	if len(sources) == 0 {
		return false
	}
	for _, src := range sources {
		if !withinAny(src, approved) {
			return false
		}
	}
	return true
}

// withinAny reports whether cidr is equal to or narrower than one of prefixes.
func withinAny(cidr string, prefixes []netip.Prefix) bool {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return false
	}
	p = p.Masked()
	for _, a := range prefixes {
		if a.Bits() <= p.Bits() && a.Contains(p.Addr()) {
			return true
		}
	}
	return false
}

// parsePrefixes parses cidrs, skipping entries that are not valid prefixes.
// The policy validator rejects those before they reach a control.
func parsePrefixes(cidrs []string) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		if p, err := netip.ParsePrefix(c); err == nil {
			out = append(out, p.Masked())
		}
	}
	return out
}
