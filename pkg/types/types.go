package types

import "time"

// Entity is a server-mirrored object addressed by ID. Unsaved instances have
// an empty ID.
type Entity interface {
	EntityID() string
}

// Node represents a proxy node reporting into the cluster
type Node struct {
	ID                 string    `json:"id,omitempty" yaml:"id,omitempty"`
	Name               string    `json:"name,omitempty" yaml:"name,omitempty"`
	Types              []string  `json:"types,omitempty" yaml:"types,omitempty"`
	Timestamp          time.Time `json:"timestamp,omitzero" yaml:"timestamp,omitempty"`
	Protocol           string    `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Port               int       `json:"port,omitempty" yaml:"port,omitempty"`
	NoRedirectServer   bool      `json:"no_redirect_server,omitempty" yaml:"no_redirect_server,omitempty"`
	ExternalInterfaces []string  `json:"external_interfaces,omitempty" yaml:"external_interfaces,omitempty"`
	InternalInterfaces []string  `json:"internal_interfaces,omitempty" yaml:"internal_interfaces,omitempty"`
	Certificates       []string  `json:"certificates,omitempty" yaml:"certificates,omitempty"`
	Services           []string  `json:"services,omitempty" yaml:"services,omitempty"`
	Authorities        []string  `json:"authorities,omitempty" yaml:"authorities,omitempty"`

	// Reported by the node, read only
	RequestsMin int64     `json:"requests_min,omitempty" yaml:"requests_min,omitempty"`
	Memory      float64   `json:"memory,omitempty" yaml:"memory,omitempty"`
	Load        []float64 `json:"load,omitempty" yaml:"load,omitempty"`
}

func (n Node) EntityID() string { return n.ID }

// NodeType is a role a node can serve
type NodeType string

const (
	NodeTypeManagement NodeType = "management"
	NodeTypeUser       NodeType = "user"
	NodeTypeProxy      NodeType = "proxy"
	NodeTypeBastion    NodeType = "bastion"
)

// Service is a protected upstream application
type Service struct {
	ID                string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name              string   `json:"name,omitempty" yaml:"name,omitempty"`
	Type              string   `json:"type,omitempty" yaml:"type,omitempty"`
	ShareSession      bool     `json:"share_session,omitempty" yaml:"share_session,omitempty"`
	LogoutPath        string   `json:"logout_path,omitempty" yaml:"logout_path,omitempty"`
	Websockets        bool     `json:"websockets,omitempty" yaml:"websockets,omitempty"`
	DisableCsrfCheck  bool     `json:"disable_csrf_check,omitempty" yaml:"disable_csrf_check,omitempty"`
	Domains           []Domain `json:"domains,omitempty" yaml:"domains,omitempty"`
	Roles             []string `json:"roles,omitempty" yaml:"roles,omitempty"`
	Servers           []Server `json:"servers,omitempty" yaml:"servers,omitempty"`
	WhitelistNetworks []string `json:"whitelist_networks,omitempty" yaml:"whitelist_networks,omitempty"`
}

func (s Service) EntityID() string { return s.ID }

// Domain is an external hostname routed to a service
type Domain struct {
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Host   string `json:"host,omitempty" yaml:"host,omitempty"`
}

// Server is one upstream backend of a service
type Server struct {
	Protocol string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Hostname string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
}

// Certificate is a TLS certificate, uploaded or issued through ACME
type Certificate struct {
	ID          string           `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string           `json:"name,omitempty" yaml:"name,omitempty"`
	Comment     string           `json:"comment,omitempty" yaml:"comment,omitempty"`
	Type        string           `json:"type,omitempty" yaml:"type,omitempty"`
	Key         string           `json:"key,omitempty" yaml:"key,omitempty"`
	Certificate string           `json:"certificate,omitempty" yaml:"certificate,omitempty"`
	AcmeDomains []string         `json:"acme_domains,omitempty" yaml:"acme_domains,omitempty"`
	AcmeType    string           `json:"acme_type,omitempty" yaml:"acme_type,omitempty"`
	AcmeAuth    string           `json:"acme_auth,omitempty" yaml:"acme_auth,omitempty"`
	AcmeSecret  string           `json:"acme_secret,omitempty" yaml:"acme_secret,omitempty"`
	Info        *CertificateInfo `json:"info,omitempty" yaml:"info,omitempty"`
}

func (c Certificate) EntityID() string { return c.ID }

// CertificateInfo is the parsed certificate summary computed by the server
type CertificateInfo struct {
	Hash         string    `json:"hash,omitempty" yaml:"hash,omitempty"`
	SignatureAlg string    `json:"signature_alg,omitempty" yaml:"signature_alg,omitempty"`
	PublicKeyAlg string    `json:"public_key_alg,omitempty" yaml:"public_key_alg,omitempty"`
	Issuer       string    `json:"issuer,omitempty" yaml:"issuer,omitempty"`
	IssuedOn     time.Time `json:"issued_on,omitzero" yaml:"issued_on,omitempty"`
	ExpiresOn    time.Time `json:"expires_on,omitzero" yaml:"expires_on,omitempty"`
	DNSNames     []string  `json:"dns_names,omitempty" yaml:"dns_names,omitempty"`
}

// Authority is an SSH certificate authority
type Authority struct {
	ID                 string         `json:"id,omitempty" yaml:"id,omitempty"`
	Name               string         `json:"name,omitempty" yaml:"name,omitempty"`
	Type               string         `json:"type,omitempty" yaml:"type,omitempty"`
	Expire             int            `json:"expire,omitempty" yaml:"expire,omitempty"`
	HostExpire         int            `json:"host_expire,omitempty" yaml:"host_expire,omitempty"`
	Roles              []string       `json:"roles,omitempty" yaml:"roles,omitempty"`
	MatchRoles         bool           `json:"match_roles,omitempty" yaml:"match_roles,omitempty"`
	KeyIDFormat        string         `json:"key_id_format,omitempty" yaml:"key_id_format,omitempty"`
	StrictHostChecking bool           `json:"strict_host_checking,omitempty" yaml:"strict_host_checking,omitempty"`
	HostDomain         string         `json:"host_domain,omitempty" yaml:"host_domain,omitempty"`
	HostSubnets        []string       `json:"host_subnets,omitempty" yaml:"host_subnets,omitempty"`
	HostMatches        []string       `json:"host_matches,omitempty" yaml:"host_matches,omitempty"`
	HostProxy          string         `json:"host_proxy,omitempty" yaml:"host_proxy,omitempty"`
	HostCertificates   bool           `json:"host_certificates,omitempty" yaml:"host_certificates,omitempty"`
	HostTokens         []string       `json:"host_tokens,omitempty" yaml:"host_tokens,omitempty"`
	ProxyHosting       bool           `json:"proxy_hosting,omitempty" yaml:"proxy_hosting,omitempty"`
	ProxyHostname      string         `json:"proxy_hostname,omitempty" yaml:"proxy_hostname,omitempty"`
	ProxyPort          int            `json:"proxy_port,omitempty" yaml:"proxy_port,omitempty"`
	PublicKey          string         `json:"public_key,omitempty" yaml:"public_key,omitempty"`
	PublicKeyPem       string         `json:"public_key_pem,omitempty" yaml:"public_key_pem,omitempty"`
	RootCertificate    string         `json:"root_certificate,omitempty" yaml:"root_certificate,omitempty"`
	HsmToken           string         `json:"hsm_token,omitempty" yaml:"hsm_token,omitempty"`
	HsmSecret          string         `json:"hsm_secret,omitempty" yaml:"hsm_secret,omitempty"`
	HsmSerial          string         `json:"hsm_serial,omitempty" yaml:"hsm_serial,omitempty"`
	HsmStatus          string         `json:"hsm_status,omitempty" yaml:"hsm_status,omitempty"`
	HsmTimestamp       time.Time      `json:"hsm_timestamp,omitzero" yaml:"hsm_timestamp,omitempty"`
	Info               *AuthorityInfo `json:"info,omitempty" yaml:"info,omitempty"`
}

func (a Authority) EntityID() string { return a.ID }

// AuthorityInfo summarizes the authority key
type AuthorityInfo struct {
	KeyAlg string `json:"key_alg,omitempty" yaml:"key_alg,omitempty"`
}

// Authority types
const (
	AuthorityTypeLocal = "local"
	AuthorityTypeHSM   = "pritunl_hsm"
)

// Policy grants access to services when its rules match
type Policy struct {
	ID                 string          `json:"id,omitempty" yaml:"id,omitempty"`
	Name               string          `json:"name,omitempty" yaml:"name,omitempty"`
	Services           []string        `json:"services,omitempty" yaml:"services,omitempty"`
	Authorities        []string        `json:"authorities,omitempty" yaml:"authorities,omitempty"`
	Roles              []string        `json:"roles,omitempty" yaml:"roles,omitempty"`
	Rules              map[string]Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	KeybaseMode        string          `json:"keybase_mode,omitempty" yaml:"keybase_mode,omitempty"`
	AdminSecondary     string          `json:"admin_secondary,omitempty" yaml:"admin_secondary,omitempty"`
	UserSecondary      string          `json:"user_secondary,omitempty" yaml:"user_secondary,omitempty"`
	ProxySecondary     string          `json:"proxy_secondary,omitempty" yaml:"proxy_secondary,omitempty"`
	AuthoritySecondary string          `json:"authority_secondary,omitempty" yaml:"authority_secondary,omitempty"`
}

func (p Policy) EntityID() string { return p.ID }

// Rule is one match condition of a policy
type Rule struct {
	Type    string   `json:"type,omitempty" yaml:"type,omitempty"`
	Disable bool     `json:"disable,omitempty" yaml:"disable,omitempty"`
	Values  []string `json:"values,omitempty" yaml:"values,omitempty"`
}

// Check is a synthetic health probe run by the nodes
type Check struct {
	ID         string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	Roles      []string `json:"roles,omitempty" yaml:"roles,omitempty"`
	Frequency  int      `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	Type       string   `json:"type,omitempty" yaml:"type,omitempty"`
	Targets    []string `json:"targets,omitempty" yaml:"targets,omitempty"`
	Method     string   `json:"method,omitempty" yaml:"method,omitempty"`
	Timeout    int      `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	StatusCode int      `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Headers    []Header `json:"headers,omitempty" yaml:"headers,omitempty"`
	States     []State  `json:"states,omitempty" yaml:"states,omitempty"`
}

func (c Check) EntityID() string { return c.ID }

// Check types
const (
	CheckTypeHTTP = "http"
	CheckTypePing = "ping"
)

// Header is a request header sent by an HTTP check
type Header struct {
	Key   string `json:"key,omitempty" yaml:"key,omitempty"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// State is a compact check result sample. Field names follow the server's
// abbreviated wire format.
type State struct {
	Endpoint  string   `json:"e,omitempty" yaml:"e,omitempty"`
	Timestamp string   `json:"t,omitempty" yaml:"t,omitempty"`
	Errors    []string `json:"x,omitempty" yaml:"x,omitempty"`
	Latency   []string `json:"l,omitempty" yaml:"l,omitempty"`
	Results   []string `json:"r,omitempty" yaml:"r,omitempty"`
}

// Alert raises a notification when a resource crosses a threshold
type Alert struct {
	ID        string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty"`
	Roles     []string `json:"roles,omitempty" yaml:"roles,omitempty"`
	Resource  string   `json:"resource,omitempty" yaml:"resource,omitempty"`
	Level     int      `json:"level,omitempty" yaml:"level,omitempty"`
	Frequency int      `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	Ignores   []string `json:"ignores,omitempty" yaml:"ignores,omitempty"`
	ValueInt  int      `json:"value_int,omitempty" yaml:"value_int,omitempty"`
	ValueStr  string   `json:"value_str,omitempty" yaml:"value_str,omitempty"`
}

func (a Alert) EntityID() string { return a.ID }

// Secret holds provider credentials used by ACME DNS challenges
type Secret struct {
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	Key     string `json:"key,omitempty" yaml:"key,omitempty"`
	Value   string `json:"value,omitempty" yaml:"value,omitempty"`
	Region  string `json:"region,omitempty" yaml:"region,omitempty"`
}

func (s Secret) EntityID() string { return s.ID }

// Log is a server log entry
type Log struct {
	ID        string         `json:"id,omitempty" yaml:"id,omitempty"`
	Level     string         `json:"level,omitempty" yaml:"level,omitempty"`
	Timestamp time.Time      `json:"timestamp,omitzero" yaml:"timestamp,omitempty"`
	Message   string         `json:"message,omitempty" yaml:"message,omitempty"`
	Stack     string         `json:"stack,omitempty" yaml:"stack,omitempty"`
	Fields    map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
}

func (l Log) EntityID() string { return l.ID }

// Audit is a recorded user event
type Audit struct {
	ID        string            `json:"id,omitempty" yaml:"id,omitempty"`
	User      string            `json:"user,omitempty" yaml:"user,omitempty"`
	Timestamp time.Time         `json:"timestamp,omitzero" yaml:"timestamp,omitempty"`
	Type      string            `json:"type,omitempty" yaml:"type,omitempty"`
	Fields    map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Agent     *Agent            `json:"agent,omitempty" yaml:"agent,omitempty"`
}

func (a Audit) EntityID() string { return a.ID }

// Agent describes the client that produced an audit event
type Agent struct {
	OperatingSystem string  `json:"operating_system,omitempty" yaml:"operating_system,omitempty"`
	Browser         string  `json:"browser,omitempty" yaml:"browser,omitempty"`
	IP              string  `json:"ip,omitempty" yaml:"ip,omitempty"`
	ISP             string  `json:"isp,omitempty" yaml:"isp,omitempty"`
	Continent       string  `json:"continent,omitempty" yaml:"continent,omitempty"`
	ContinentCode   string  `json:"continent_code,omitempty" yaml:"continent_code,omitempty"`
	Country         string  `json:"country,omitempty" yaml:"country,omitempty"`
	CountryCode     string  `json:"country_code,omitempty" yaml:"country_code,omitempty"`
	Region          string  `json:"region,omitempty" yaml:"region,omitempty"`
	RegionCode      string  `json:"region_code,omitempty" yaml:"region_code,omitempty"`
	City            string  `json:"city,omitempty" yaml:"city,omitempty"`
	Latitude        float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude       float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
}

// User is a console or proxy user account
type User struct {
	ID            string    `json:"id,omitempty" yaml:"id,omitempty"`
	Type          string    `json:"type,omitempty" yaml:"type,omitempty"`
	Username      string    `json:"username,omitempty" yaml:"username,omitempty"`
	Password      string    `json:"password,omitempty" yaml:"password,omitempty"`
	Keybase       string    `json:"keybase,omitempty" yaml:"keybase,omitempty"`
	LastActive    time.Time `json:"last_active,omitzero" yaml:"last_active,omitempty"`
	Roles         []string  `json:"roles,omitempty" yaml:"roles,omitempty"`
	Administrator string    `json:"administrator,omitempty" yaml:"administrator,omitempty"`
	Disabled      bool      `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	ActiveUntil   time.Time `json:"active_until,omitzero" yaml:"active_until,omitempty"`
	Permissions   []string  `json:"permissions,omitempty" yaml:"permissions,omitempty"`
}

func (u User) EntityID() string { return u.ID }

// Endpoint is a host reporting system data to the console
type Endpoint struct {
	ID    string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name  string   `json:"name,omitempty" yaml:"name,omitempty"`
	Roles []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

func (e Endpoint) EntityID() string { return e.ID }

// Session is a signed-in browser session of a user
type Session struct {
	ID         string    `json:"id,omitempty" yaml:"id,omitempty"`
	UserID     string    `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitzero" yaml:"timestamp,omitempty"`
	LastActive time.Time `json:"last_active,omitzero" yaml:"last_active,omitempty"`
	Agent      *Agent    `json:"agent,omitempty" yaml:"agent,omitempty"`
}

func (s Session) EntityID() string { return s.ID }

// Device is a second factor or SSH key registered to a user
type Device struct {
	ID           string    `json:"id,omitempty" yaml:"id,omitempty"`
	User         string    `json:"user,omitempty" yaml:"user,omitempty"`
	Name         string    `json:"name,omitempty" yaml:"name,omitempty"`
	Type         string    `json:"type,omitempty" yaml:"type,omitempty"`
	Mode         string    `json:"mode,omitempty" yaml:"mode,omitempty"`
	Timestamp    time.Time `json:"timestamp,omitzero" yaml:"timestamp,omitempty"`
	Disabled     bool      `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	ActiveUntil  time.Time `json:"active_until,omitzero" yaml:"active_until,omitempty"`
	Number       string    `json:"number,omitempty" yaml:"number,omitempty"`
	LastActive   time.Time `json:"last_active,omitzero" yaml:"last_active,omitempty"`
	SSHPublicKey string    `json:"ssh_public_key,omitempty" yaml:"ssh_public_key,omitempty"`
}

func (d Device) EntityID() string { return d.ID }

// SSHCertificate is a certificate issued to a user by one or more
// authorities
type SSHCertificate struct {
	ID               string               `json:"id,omitempty" yaml:"id,omitempty"`
	UserID           string               `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	AuthorityIDs     []string             `json:"authority_ids,omitempty" yaml:"authority_ids,omitempty"`
	Timestamp        time.Time            `json:"timestamp,omitzero" yaml:"timestamp,omitempty"`
	Agent            *Agent               `json:"agent,omitempty" yaml:"agent,omitempty"`
	CertificatesInfo []SSHCertificateInfo `json:"certificates_info,omitempty" yaml:"certificates_info,omitempty"`
}

func (c SSHCertificate) EntityID() string { return c.ID }

// SSHCertificateInfo describes one certificate of an issue
type SSHCertificateInfo struct {
	Serial     string    `json:"serial,omitempty" yaml:"serial,omitempty"`
	Expires    time.Time `json:"expires,omitzero" yaml:"expires,omitempty"`
	Principals []string  `json:"principals,omitempty" yaml:"principals,omitempty"`
	Extensions []string  `json:"extensions,omitempty" yaml:"extensions,omitempty"`
}

// Settings is the server-wide configuration document
type Settings struct {
	AuthProviders  []Provider `json:"auth_providers" yaml:"auth_providers"`
	ElasticAddress string     `json:"elastic_address" yaml:"elastic_address"`
}

// Provider is a single sign-on provider. Google and SAML specific fields
// are empty for other provider types.
type Provider struct {
	ID           string   `json:"id,omitempty" yaml:"id,omitempty"`
	Type         string   `json:"type" yaml:"type"`
	Label        string   `json:"label" yaml:"label"`
	DefaultRoles []string `json:"default_roles" yaml:"default_roles"`
	AutoCreate   bool     `json:"auto_create" yaml:"auto_create"`

	Domain    string `json:"domain,omitempty" yaml:"domain,omitempty"`
	IssuerURL string `json:"issuer_url,omitempty" yaml:"issuer_url,omitempty"`
	SamlURL   string `json:"saml_url,omitempty" yaml:"saml_url,omitempty"`
	SamlCert  string `json:"saml_cert,omitempty" yaml:"saml_cert,omitempty"`
}

// Completion carries the lookup lists used to resolve IDs to names
type Completion struct {
	Nodes        []Node        `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Services     []Service     `json:"services,omitempty" yaml:"services,omitempty"`
	Certificates []Certificate `json:"certificates,omitempty" yaml:"certificates,omitempty"`
	Authorities  []Authority   `json:"authorities,omitempty" yaml:"authorities,omitempty"`
	Policies     []Policy      `json:"policies,omitempty" yaml:"policies,omitempty"`
	Secrets      []Secret      `json:"secrets,omitempty" yaml:"secrets,omitempty"`
}
