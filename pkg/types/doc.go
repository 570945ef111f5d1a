/*
Package types defines the entities mirrored from the access proxy server.

Every collection entity implements Entity, which exposes the server-assigned
ID used by the stores' ID index. An empty ID marks an instance that has not
been saved yet; the actions package sends those with POST and saved ones
with PUT.

Field names and JSON tags follow the server's wire format exactly, so a
value decoded from a list response can be sent back unchanged on commit.
The YAML tags mirror the JSON ones and are used by `zerocon apply` and the
`-o yaml` output.

# Core Types

Collections (paginated ones marked with *):

  - Node: proxy node with its served services and reported load
  - Service: protected upstream application with domains and servers
  - Certificate: TLS certificate, uploaded or issued through ACME
  - Authority: SSH certificate authority, local or HSM backed
  - Policy: access rules binding roles to services and authorities
  - Check*: synthetic probe with its recent State samples
  - Alert*: threshold alert on a node or check resource
  - Secret: provider credentials used by ACME DNS challenges
  - Log*: server log entry
  - Audit: user event, listed per user

Documents:

  - Settings: server configuration with the SSO providers
  - Completion: lookup lists that resolve IDs to names

# Usage

	svc := types.Service{
		Name: "wiki",
		Domains: []types.Domain{
			{Domain: "wiki.example.com"},
		},
		Servers: []types.Server{
			{Protocol: "https", Hostname: "10.0.0.12", Port: 443},
		},
		Roles: []string{"engineering"},
	}

	// svc.EntityID() == "" so the service is created, not committed
	err := console.Services.Create(ctx, svc)
*/
package types
