package firewall

import "strings"

// ChainName is the dedicated chain referenced from INPUT and OUTPUT.
const ChainName = "TRAFFIC_LIMIT"

// fallbackSSHPort stays open regardless of configuration so a wrong
// ssh_port value cannot lock the administrator out.
const fallbackSSHPort = 22

// family selects one of the two parallel rule tables.
type family struct {
	tool     string // iptables or ip6tables
	saveTool string // iptables-save or ip6tables-save
	icmp     string // icmp protocol name for this family
	saveFile string
}

var (
	ipv4 = family{tool: "iptables", saveTool: "iptables-save", icmp: "icmp", saveFile: "rules.v4"}
	ipv6 = family{tool: "ip6tables", saveTool: "ip6tables-save", icmp: "ipv6-icmp", saveFile: "rules.v6"}
)

// cidrMatchesFamily reports whether a CIDR belongs to a family's address
// space.
func cidrMatchesFamily(cidr string, f family) bool {
	isV6 := strings.Contains(cidr, ":")
	return isV6 == (f.tool == ipv6.tool)
}

// chainRules returns the ordered rule bodies appended to the chain, each
// as the argument list following "-A TRAFFIC_LIMIT".
func chainRules(f family, sshPort string, allowedCIDRs []string) [][]string {
	rules := [][]string{
		{"-i", "lo", "-j", "ACCEPT"},
		{"-o", "lo", "-j", "ACCEPT"},
		{"-m", "conntrack", "--ctstate", "ESTABLISHED,RELATED", "-j", "ACCEPT"},
		{"-p", "tcp", "--dport", sshPort, "-j", "ACCEPT"},
		{"-p", "tcp", "--sport", sshPort, "-j", "ACCEPT"},
	}
	if sshPort != "22" {
		rules = append(rules,
			[]string{"-p", "tcp", "--dport", "22", "-j", "ACCEPT"},
			[]string{"-p", "tcp", "--sport", "22", "-j", "ACCEPT"},
		)
	}
	rules = append(rules,
		[]string{"-p", "udp", "--dport", "53", "-j", "ACCEPT"},
		[]string{"-p", "tcp", "--dport", "53", "-j", "ACCEPT"},
		[]string{"-p", f.icmp, "-j", "ACCEPT"},
	)
	for _, cidr := range allowedCIDRs {
		if !cidrMatchesFamily(cidr, f) {
			continue
		}
		rules = append(rules,
			[]string{"-d", cidr, "-j", "ACCEPT"},
			[]string{"-s", cidr, "-j", "ACCEPT"},
		)
	}
	rules = append(rules, []string{"-j", "DROP"})
	return rules
}
