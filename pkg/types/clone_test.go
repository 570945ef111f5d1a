package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClonesShareNoMemory(t *testing.T) {
	policy := Policy{ID: "p1", Rules: map[string]Rule{"os": {Type: "operating_system", Values: []string{"linux"}}}}
	pc := policy.Clone()
	pc.Rules["os"].Values[0] = "windows"
	assert.Equal(t, "linux", policy.Rules["os"].Values[0])

	check := Check{ID: "c1", States: []State{{Endpoint: "e1", Errors: []string{"timeout"}}}}
	cc := check.Clone()
	cc.States[0].Errors[0] = "ok"
	assert.Equal(t, "timeout", check.States[0].Errors[0])

	cert := Certificate{ID: "c1", Info: &CertificateInfo{DNSNames: []string{"a.example.com"}}}
	certc := cert.Clone()
	certc.Info.DNSNames[0] = "b.example.com"
	assert.Equal(t, "a.example.com", cert.Info.DNSNames[0])

	ssh := SSHCertificate{ID: "s1", CertificatesInfo: []SSHCertificateInfo{{Principals: []string{"root"}}}}
	sshc := ssh.Clone()
	sshc.CertificatesInfo[0].Principals[0] = "admin"
	assert.Equal(t, "root", ssh.CertificatesInfo[0].Principals[0])
}

func TestCloneKeepsNil(t *testing.T) {
	n := Node{ID: "n1"}.Clone()
	assert.Nil(t, n.Types)
	assert.Nil(t, Audit{ID: "a1"}.Clone().Agent)
	assert.Nil(t, Policy{}.Clone().Rules)
}
