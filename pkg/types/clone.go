package types

import (
	"maps"
	"slices"
)

// Clone methods copy every slice, map and pointer field, so a clone shares
// no memory with the original. Stores hand out clones.

func (n Node) Clone() Node {
	n.Types = slices.Clone(n.Types)
	n.ExternalInterfaces = slices.Clone(n.ExternalInterfaces)
	n.InternalInterfaces = slices.Clone(n.InternalInterfaces)
	n.Certificates = slices.Clone(n.Certificates)
	n.Services = slices.Clone(n.Services)
	n.Authorities = slices.Clone(n.Authorities)
	n.Load = slices.Clone(n.Load)
	return n
}

func (s Service) Clone() Service {
	s.Domains = slices.Clone(s.Domains)
	s.Roles = slices.Clone(s.Roles)
	s.Servers = slices.Clone(s.Servers)
	s.WhitelistNetworks = slices.Clone(s.WhitelistNetworks)
	return s
}

func (c Certificate) Clone() Certificate {
	c.AcmeDomains = slices.Clone(c.AcmeDomains)
	if c.Info != nil {
		info := *c.Info
		info.DNSNames = slices.Clone(info.DNSNames)
		c.Info = &info
	}
	return c
}

func (a Authority) Clone() Authority {
	a.Roles = slices.Clone(a.Roles)
	a.HostSubnets = slices.Clone(a.HostSubnets)
	a.HostMatches = slices.Clone(a.HostMatches)
	a.HostTokens = slices.Clone(a.HostTokens)
	if a.Info != nil {
		info := *a.Info
		a.Info = &info
	}
	return a
}

func (p Policy) Clone() Policy {
	p.Services = slices.Clone(p.Services)
	p.Authorities = slices.Clone(p.Authorities)
	p.Roles = slices.Clone(p.Roles)
	if p.Rules != nil {
		rules := make(map[string]Rule, len(p.Rules))
		for k, r := range p.Rules {
			r.Values = slices.Clone(r.Values)
			rules[k] = r
		}
		p.Rules = rules
	}
	return p
}

func (c Check) Clone() Check {
	c.Roles = slices.Clone(c.Roles)
	c.Targets = slices.Clone(c.Targets)
	c.Headers = slices.Clone(c.Headers)
	if c.States != nil {
		states := make([]State, len(c.States))
		for i, st := range c.States {
			st.Errors = slices.Clone(st.Errors)
			st.Latency = slices.Clone(st.Latency)
			st.Results = slices.Clone(st.Results)
			states[i] = st
		}
		c.States = states
	}
	return c
}

func (a Alert) Clone() Alert {
	a.Roles = slices.Clone(a.Roles)
	a.Ignores = slices.Clone(a.Ignores)
	return a
}

// Clone copies the field map one level deep. Nested values decoded from
// JSON are shared.
func (l Log) Clone() Log {
	l.Fields = maps.Clone(l.Fields)
	return l
}

func (a Audit) Clone() Audit {
	a.Fields = maps.Clone(a.Fields)
	a.Agent = cloneAgent(a.Agent)
	return a
}

func (u User) Clone() User {
	u.Roles = slices.Clone(u.Roles)
	u.Permissions = slices.Clone(u.Permissions)
	return u
}

func (e Endpoint) Clone() Endpoint {
	e.Roles = slices.Clone(e.Roles)
	return e
}

func (s Session) Clone() Session {
	s.Agent = cloneAgent(s.Agent)
	return s
}

func (c SSHCertificate) Clone() SSHCertificate {
	c.AuthorityIDs = slices.Clone(c.AuthorityIDs)
	c.Agent = cloneAgent(c.Agent)
	if c.CertificatesInfo != nil {
		infos := make([]SSHCertificateInfo, len(c.CertificatesInfo))
		for i, info := range c.CertificatesInfo {
			info.Principals = slices.Clone(info.Principals)
			info.Extensions = slices.Clone(info.Extensions)
			infos[i] = info
		}
		c.CertificatesInfo = infos
	}
	return c
}

func cloneAgent(a *Agent) *Agent {
	if a == nil {
		return nil
	}
	agent := *a
	return &agent
}
